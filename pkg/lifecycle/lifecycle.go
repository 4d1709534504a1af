// Package lifecycle tracks assignments through the publish state machine:
// scheduled to published or failed, with failed assignments re-queued on
// an explicit retry.
//
// The tracker records outcomes reported by the publish adapter; it never
// invokes the adapter itself, and it never retries on its own. A failure
// is written once and stays put until an operator calls Retry.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/queue"
	"github.com/postplanner/postplan/pkg/validate"
)

// Tracker applies publish-status transitions to assignments.
type Tracker struct {
	store  core.Store
	queue  *queue.Queue
	logger *slog.Logger
	clock  func() time.Time

	// Hooks, called synchronously after the transition is stored.
	onPublished []func(context.Context, *core.Assignment)
	onFailed    []func(context.Context, *core.Assignment, string)
}

// Option configures a Tracker.
type Option interface {
	apply(*Tracker)
}

type optionFunc func(*Tracker)

func (f optionFunc) apply(t *Tracker) { f(t) }

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(t *Tracker) { t.logger = l })
}

// WithClock replaces the tracker's time source.
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(t *Tracker) { t.clock = clock })
}

// New creates a tracker over the queue's store. Retry re-enters the queue
// to find a fresh (slot, date) pair.
func New(q *queue.Queue, opts ...Option) *Tracker {
	t := &Tracker{
		store:  q.Store(),
		queue:  q,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt.apply(t)
	}
	return t
}

// OnPublished registers a hook called after an assignment transitions to
// published.
func (t *Tracker) OnPublished(fn func(context.Context, *core.Assignment)) {
	t.onPublished = append(t.onPublished, fn)
}

// OnFailed registers a hook called after an assignment transitions to
// failed, with the sanitized failure reason.
func (t *Tracker) OnFailed(fn func(context.Context, *core.Assignment, string)) {
	t.onFailed = append(t.onFailed, fn)
}

// Outcome is a publish adapter's report for one assignment.
type Outcome struct {
	OK     bool
	Reason string
}

// Success reports a completed publish.
func Success() Outcome { return Outcome{OK: true} }

// Failure reports a rejected publish with an operator-facing reason.
func Failure(reason string) Outcome { return Outcome{OK: false, Reason: reason} }

// Report applies an adapter outcome: scheduled moves to published or
// failed. Published is terminal; reporting against a published or failed
// assignment returns a TransitionError.
func (t *Tracker) Report(ctx context.Context, assignmentID string, outcome Outcome) (*core.Assignment, error) {
	var out *core.Assignment
	err := t.queue.WithLock(func() error {
		a, err := t.store.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		target := core.StatusPublished
		if !outcome.OK {
			target = core.StatusFailed
		}
		if a.Status != core.StatusScheduled {
			return &core.TransitionError{AssignmentID: a.ID, From: a.Status, To: target}
		}

		now := t.clock()
		a.Status = target
		if outcome.OK {
			a.PublishedAt = &now
			a.FailureReason = ""
		} else {
			a.FailedAt = &now
			a.FailureReason = validate.SanitizeReason(outcome.Reason)
		}
		if err := t.store.UpdateAssignment(ctx, a); err != nil {
			return err
		}

		if outcome.OK {
			t.logger.Info("assignment published", "assignment_id", a.ID)
			t.queue.Emit(&core.AssignmentPublished{Assignment: a, Timestamp: now})
			for _, fn := range t.onPublished {
				fn(ctx, a)
			}
		} else {
			t.logger.Warn("assignment failed", "assignment_id", a.ID, "reason", a.FailureReason)
			t.queue.Emit(&core.AssignmentFailed{Assignment: a, Reason: a.FailureReason, Timestamp: now})
			for _, fn := range t.onFailed {
				fn(ctx, a, a.FailureReason)
			}
		}
		out = a
		return nil
	})
	return out, err
}

// Retry re-queues a failed assignment, cascading from today: the original
// pair may be in the past or taken by now. Only failed assignments can be
// retried; anything else returns a typed error (ErrAlreadyPublished for
// published, ErrNotFailed for scheduled).
func (t *Tracker) Retry(ctx context.Context, assignmentID string) (*core.Assignment, error) {
	var out *core.Assignment
	err := t.queue.WithLock(func() error {
		a, err := t.store.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		switch a.Status {
		case core.StatusFailed:
		case core.StatusPublished:
			return core.ErrAlreadyPublished
		default:
			return core.ErrNotFailed
		}
		prevDate := a.Date

		now := t.clock()
		a, err = t.queue.ReassignLocked(ctx, assignmentID, core.DateOf(now))
		if err != nil {
			return err
		}
		a.Status = core.StatusScheduled
		a.FailureReason = ""
		a.FailedAt = nil
		a.Orphaned = false
		if err := t.store.UpdateAssignment(ctx, a); err != nil {
			return err
		}

		t.logger.Info("assignment retried",
			"assignment_id", a.ID, "slot_id", a.SlotID, "date", a.Date.String())
		t.queue.Emit(&core.AssignmentRetried{Assignment: a, PrevDate: prevDate, Timestamp: now})
		out = a
		return nil
	})
	return out, err
}
