package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/queue"
	"github.com/postplanner/postplan/pkg/registry"
	"github.com/postplanner/postplan/pkg/storage"
)

// fixedClock pins "now" so retry's cascade-from-today is deterministic.
var fixedClock = func() time.Time {
	return time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
}

func newTestTracker(t *testing.T) (*Tracker, *queue.Queue) {
	t.Helper()
	store := storage.NewMemoryStore()
	reg := registry.New(store)
	ctx := context.Background()
	for _, p := range registry.PresetClassic {
		_, err := reg.Add(ctx, p.Name, p.At)
		require.NoError(t, err)
	}
	q := queue.New(store, reg, queue.WithClock(fixedClock))
	return New(q, WithClock(fixedClock)), q
}

func scheduleOne(t *testing.T, q *queue.Queue, day core.Date) *core.Assignment {
	t.Helper()
	a, err := q.Schedule(context.Background(), &core.ContentItem{
		Title:    "post",
		Type:     core.ContentText,
		Platform: "x",
	}, day)
	require.NoError(t, err)
	return a
}

func TestReportSuccess(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	got, err := tr.Report(ctx, a.ID, Success())
	require.NoError(t, err)
	assert.Equal(t, core.StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
}

func TestReportFailureCarriesReason(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	got, err := tr.Report(ctx, a.ID, Failure("platform rate limit"))
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, "platform rate limit", got.FailureReason)
	require.NotNil(t, got.FailedAt)
}

func TestPublishedIsTerminal(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	_, err := tr.Report(ctx, a.ID, Success())
	require.NoError(t, err)

	_, err = tr.Report(ctx, a.ID, Success())
	assert.ErrorIs(t, err, core.ErrAlreadyPublished)

	_, err = tr.Report(ctx, a.ID, Failure("late failure"))
	assert.ErrorIs(t, err, core.ErrAlreadyPublished)

	_, err = tr.Retry(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrAlreadyPublished)
}

func TestFailedRejectsSecondOutcome(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	_, err := tr.Report(ctx, a.ID, Failure("boom"))
	require.NoError(t, err)

	// A failure is recorded once; only an explicit Retry re-arms it.
	_, err = tr.Report(ctx, a.ID, Success())
	var te *core.TransitionError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, core.StatusFailed, te.From)
}

func TestRetryRecascadesFromNow(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()

	// Fail an assignment scheduled well before "now" (June 10).
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))
	_, err := tr.Report(ctx, a.ID, Failure("platform rate limit"))
	require.NoError(t, err)

	got, err := tr.Retry(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusScheduled, got.Status)
	assert.Empty(t, got.FailureReason)
	assert.Nil(t, got.FailedAt)
	assert.Equal(t, a.ID, got.ID, "retry keeps the assignment identity")
	assert.False(t, got.Date.Before(core.NewDate(2024, time.June, 10)),
		"retry cascades from today, not from the stale date")
}

func TestRetryRequiresFailedState(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	_, err := tr.Retry(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFailed)
}

func TestReportNotFound(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Report(context.Background(), "missing", Success())
	assert.ErrorIs(t, err, core.ErrAssignmentNotFound)

	_, err = tr.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrAssignmentNotFound)
}

func TestFailureReasonIsSanitized(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	got, err := tr.Report(ctx, a.ID, Failure("bad\x00response\x1b[31m from api"))
	require.NoError(t, err)
	assert.Equal(t, "badresponse[31m from api", got.FailureReason)
}

func TestOutcomeHooks(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()

	var published []string
	tr.OnPublished(func(_ context.Context, a *core.Assignment) {
		published = append(published, a.ID)
	})
	var failedReason string
	tr.OnFailed(func(_ context.Context, _ *core.Assignment, reason string) {
		failedReason = reason
	})

	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))
	b := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	_, err := tr.Report(ctx, a.ID, Success())
	require.NoError(t, err)
	_, err = tr.Report(ctx, b.ID, Failure("boom"))
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID}, published)
	assert.Equal(t, "boom", failedReason)
}

func TestLifecycleEvents(t *testing.T) {
	tr, q := newTestTracker(t)
	ctx := context.Background()
	a := scheduleOne(t, q, core.NewDate(2024, time.June, 1))

	events := q.Events()
	defer q.Unsubscribe(events)

	_, err := tr.Report(ctx, a.ID, Failure("boom"))
	require.NoError(t, err)
	ev := <-events
	failed, ok := ev.(*core.AssignmentFailed)
	require.True(t, ok, "expected AssignmentFailed, got %T", ev)
	assert.Equal(t, "boom", failed.Reason)

	_, err = tr.Retry(ctx, a.ID)
	require.NoError(t, err)

	// Retry re-runs the cascade (reschedule event) and then reports the
	// retry itself.
	ev = <-events
	_, ok = ev.(*core.AssignmentRescheduled)
	require.True(t, ok, "expected AssignmentRescheduled, got %T", ev)
	ev = <-events
	retried, ok := ev.(*core.AssignmentRetried)
	require.True(t, ok, "expected AssignmentRetried, got %T", ev)
	assert.Equal(t, a.Date, retried.PrevDate)
}
