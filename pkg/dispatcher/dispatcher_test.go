package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/lifecycle"
	"github.com/postplanner/postplan/pkg/queue"
	"github.com/postplanner/postplan/pkg/registry"
	"github.com/postplanner/postplan/pkg/storage"
)

// recordingPublisher counts publishes and fails while err is set.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, item *core.ContentItem, _ *core.Assignment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, item.ID)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type testEnv struct {
	store   core.Store
	queue   *queue.Queue
	tracker *lifecycle.Tracker
}

// newTestEnv builds a queue with a single 09:00 slot and one assignment
// scheduled for June 1 2024.
func newTestEnv(t *testing.T) (*testEnv, *core.Assignment) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	scheduleClock := func() time.Time {
		return time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	}
	reg := registry.New(store)
	_, err := reg.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)

	q := queue.New(store, reg, queue.WithClock(scheduleClock))
	tracker := lifecycle.New(q, lifecycle.WithClock(scheduleClock))

	item := &core.ContentItem{Title: "post", Type: core.ContentImage, Platform: "instagram"}
	a, err := q.Schedule(ctx, item, core.NewDate(2024, time.June, 1))
	require.NoError(t, err)

	return &testEnv{store: store, queue: q, tracker: tracker}, a
}

func runDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := d.Start(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestDispatcherPublishesDue(t *testing.T) {
	env, a := newTestEnv(t)
	pub := &recordingPublisher{}

	d := New(env.tracker, env.store, pub,
		PollInterval(5*time.Millisecond),
		Concurrency(2),
		WithClock(func() time.Time {
			return time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)
		}),
	)
	runDispatcher(t, d)

	require.Eventually(t, func() bool {
		got, err := env.store.GetAssignment(context.Background(), a.ID)
		return err == nil && got.Status == core.StatusPublished
	}, 2*time.Second, 10*time.Millisecond)

	got, err := env.store.GetAssignment(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, 1, pub.count())
}

func TestDispatcherNotDueBeforeSlotTime(t *testing.T) {
	env, a := newTestEnv(t)
	pub := &recordingPublisher{}

	d := New(env.tracker, env.store, pub,
		PollInterval(5*time.Millisecond),
		WithClock(func() time.Time {
			return time.Date(2024, time.June, 1, 8, 59, 0, 0, time.UTC)
		}),
	)
	runDispatcher(t, d)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, pub.count())
	got, err := env.store.GetAssignment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusScheduled, got.Status)
}

func TestDispatcherRecordsFailureOnce(t *testing.T) {
	env, a := newTestEnv(t)
	pub := &recordingPublisher{err: errors.New("api rejected the upload")}

	d := New(env.tracker, env.store, pub,
		PollInterval(5*time.Millisecond),
		WithClock(func() time.Time {
			return time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
		}),
	)
	runDispatcher(t, d)

	require.Eventually(t, func() bool {
		got, err := env.store.GetAssignment(context.Background(), a.ID)
		return err == nil && got.Status == core.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := env.store.GetAssignment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "api rejected the upload", got.FailureReason)
	require.NotNil(t, got.FailedAt)

	// Failed assignments are no longer due; keep polling and confirm the
	// publisher is not asked again.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, pub.count())
}

func TestDispatchMissingItem(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	ghost := &core.Assignment{
		ItemID: "deleted-item",
		SlotID: "slot-x",
		Date:   core.NewDate(2024, time.June, 1),
		At:     core.MustTimeOfDay(9, 0),
	}
	require.NoError(t, env.store.ClaimSlot(ctx, ghost))

	pub := &recordingPublisher{}
	d := New(env.tracker, env.store, pub)
	d.dispatch(ctx, ghost)

	got, err := env.store.GetAssignment(ctx, ghost.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Contains(t, got.FailureReason, "deleted-item")
	assert.Equal(t, 0, pub.count())
}

func TestDispatchInflightDedup(t *testing.T) {
	env, _ := newTestEnv(t)
	pub := &recordingPublisher{}
	d := New(env.tracker, env.store, pub)

	assert.True(t, d.markInflight("a-1"))
	assert.False(t, d.markInflight("a-1"))
	d.clearInflight("a-1")
	assert.True(t, d.markInflight("a-1"))
}

func TestWithPrunePanicsOnBadExpression(t *testing.T) {
	assert.Panics(t, func() { WithPrune("not a cron", time.Hour) })
	assert.NotPanics(t, func() { WithPrune("0 3 * * *", 30*24*time.Hour) })
}
