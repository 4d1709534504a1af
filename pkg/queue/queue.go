// Package queue provides the SchedulingQueue: assignment of content items
// to (slot, date) pairs with collision cascading.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/registry"
	"github.com/postplanner/postplan/pkg/validate"
)

// Queue assigns content items to publish slots. One Queue serves one
// workspace; construct one per tenant and share it by reference.
//
// All mutating operations run under a single per-queue mutex: the
// earliest-available cascade is a read-then-write sequence, and two
// interleaved cascades could otherwise claim the same free pair.
// Operations on different Queue instances never block each other.
type Queue struct {
	mu       sync.Mutex
	store    core.Store
	registry *registry.Registry
	logger   *slog.Logger
	clock    func() time.Time

	// Hooks
	onScheduled []func(context.Context, *core.Assignment)

	// Event stream
	evMu      sync.RWMutex
	eventSubs []chan core.Event
}

// New creates a queue over the given store and slot registry.
func New(store core.Store, reg *registry.Registry, opts ...Option) *Queue {
	q := &Queue{
		store:    store,
		registry: reg,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt.apply(q)
	}
	return q
}

// Store returns the underlying store.
func (q *Queue) Store() core.Store { return q.store }

// Registry returns the slot registry the queue cascades over.
func (q *Queue) Registry() *registry.Registry { return q.registry }

// Schedule captures a copy of the item and assigns it to the earliest
// available (slot, date) pair at or after the requested date.
//
// Overflow is expected: when the requested day is full the cascade walks
// forward day by day, so asking for more items than a single day's slot
// capacity is not an error. Scheduling fails only when the registry has
// no slots at all.
func (q *Queue) Schedule(ctx context.Context, item *core.ContentItem, requested core.Date) (*core.Assignment, error) {
	if err := validate.Item(item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	a := &core.Assignment{
		ID:     uuid.New().String(),
		ItemID: item.ID,
		Status: core.StatusScheduled,
	}
	if err := q.cascade(ctx, a, requested); err != nil {
		return nil, err
	}

	q.logger.Debug("item scheduled",
		"assignment_id", a.ID, "item_id", item.ID,
		"slot_id", a.SlotID, "date", a.Date.String())
	q.callScheduledHooks(ctx, a)
	q.Emit(&core.AssignmentScheduled{Assignment: a, Item: item, Timestamp: q.clock()})
	return a, nil
}

// Reassign moves an existing assignment, re-running the cascade from
// newDate. The old (slot, date) pair is released first, so it is
// immediately available — including to this very cascade when it is the
// earliest free pair at or after newDate.
func (q *Queue) Reassign(ctx context.Context, assignmentID string, newDate core.Date) (*core.Assignment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reassign(ctx, assignmentID, newDate)
}

// reassign is the lock-free inner body, shared with the lifecycle's retry
// path via ReassignLocked.
func (q *Queue) reassign(ctx context.Context, assignmentID string, newDate core.Date) (*core.Assignment, error) {
	a, err := q.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	prevSlot, prevDate, prevAt := a.SlotID, a.Date, a.At

	// Release the old pair before searching.
	if err := q.store.DeleteAssignment(ctx, a.ID); err != nil {
		return nil, err
	}
	if err := q.cascade(ctx, a, newDate); err != nil {
		// Restore the original pair so a failed reassign is a no-op.
		a.SlotID, a.Date, a.At = prevSlot, prevDate, prevAt
		if restoreErr := q.store.ClaimSlot(ctx, a); restoreErr != nil {
			q.logger.Error("failed to restore assignment after reassign error",
				"assignment_id", a.ID, "error", restoreErr)
		}
		return nil, err
	}

	q.Emit(&core.AssignmentRescheduled{
		Assignment: a,
		PrevSlotID: prevSlot,
		PrevDate:   prevDate,
		Timestamp:  q.clock(),
	})
	return a, nil
}

// Unassign removes an assignment, freeing its (slot, date) pair.
func (q *Queue) Unassign(ctx context.Context, assignmentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	a, err := q.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if err := q.store.DeleteAssignment(ctx, a.ID); err != nil {
		return err
	}
	q.Emit(&core.AssignmentCancelled{Assignment: a, Timestamp: q.clock()})
	return nil
}

// Clone schedules a duplicated content item, cascading from the day after
// the source assignment's date so the copy never collides with the source.
func (q *Queue) Clone(ctx context.Context, assignmentID string, copy *core.ContentItem) (*core.Assignment, error) {
	if err := validate.Item(copy); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	src, err := q.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if copy.ID == "" || copy.ID == src.ItemID {
		copy.ID = uuid.New().String()
	}
	if err := q.store.SaveItem(ctx, copy); err != nil {
		return nil, err
	}

	a := &core.Assignment{
		ID:     uuid.New().String(),
		ItemID: copy.ID,
		Status: core.StatusScheduled,
	}
	if err := q.cascade(ctx, a, src.Date.Next()); err != nil {
		return nil, err
	}

	q.callScheduledHooks(ctx, a)
	q.Emit(&core.AssignmentScheduled{Assignment: a, Item: copy, Timestamp: q.clock()})
	return a, nil
}

// BySlot returns the slot's assignments ascending by date. Assignments of
// a removed slot are still returned, carrying the orphaned flag.
func (q *Queue) BySlot(ctx context.Context, slotID string) ([]core.Assignment, error) {
	assignments, err := q.store.ListBySlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Date.Before(assignments[j].Date)
	})
	return assignments, nil
}

// Get returns one assignment by ID.
func (q *Queue) Get(ctx context.Context, assignmentID string) (*core.Assignment, error) {
	return q.store.GetAssignment(ctx, assignmentID)
}

// Assignments returns every assignment known to the queue.
func (q *Queue) Assignments(ctx context.Context) ([]core.Assignment, error) {
	return q.store.ListAssignments(ctx)
}

// cascade implements the earliest-available search: iterate the sorted
// slot set for the candidate date, claim the first free pair, and advance
// one day when the whole date is occupied. Runs inside the registry's
// read lock so the slot set cannot change mid-search. The caller must
// hold q.mu.
func (q *Queue) cascade(ctx context.Context, a *core.Assignment, from core.Date) error {
	return q.registry.View(ctx, func(slots []core.TimeSlot) error {
		if len(slots) == 0 {
			return core.ErrNoSlotsConfigured
		}
		for date := from; ; date = date.Next() {
			for i := range slots {
				a.SlotID = slots[i].ID
				a.Date = date
				a.At = slots[i].At
				err := q.store.ClaimSlot(ctx, a)
				if err == nil {
					return nil
				}
				if errors.Is(err, core.ErrSlotOccupied) {
					continue
				}
				return err
			}
		}
	})
}

// OnScheduled registers a hook called after every successful Schedule or
// Clone.
func (q *Queue) OnScheduled(fn func(context.Context, *core.Assignment)) {
	q.mu.Lock()
	q.onScheduled = append(q.onScheduled, fn)
	q.mu.Unlock()
}

func (q *Queue) callScheduledHooks(ctx context.Context, a *core.Assignment) {
	for _, fn := range q.onScheduled {
		fn(ctx, a)
	}
}

// Events returns a channel for receiving queue events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (q *Queue) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	q.evMu.Lock()
	q.eventSubs = append(q.eventSubs, ch)
	q.evMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed; callers must stop reading before calling
// Unsubscribe.
func (q *Queue) Unsubscribe(ch <-chan core.Event) {
	q.evMu.Lock()
	defer q.evMu.Unlock()
	for i, sub := range q.eventSubs {
		if sub == ch {
			q.eventSubs = append(q.eventSubs[:i], q.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit broadcasts an event to all subscribers. Events are dropped for
// subscribers with full buffers rather than blocking the scheduler.
func (q *Queue) Emit(e core.Event) {
	q.evMu.RLock()
	subs := make([]chan core.Event, len(q.eventSubs))
	copy(subs, q.eventSubs)
	q.evMu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Clock returns the queue's time source (real time unless WithClock
// replaced it).
func (q *Queue) Clock() func() time.Time { return q.clock }

// WithLock runs fn while holding the queue mutex. The lifecycle tracker
// uses it so retry's read-reassign-update sequence is serialized with
// regular scheduling.
func (q *Queue) WithLock(fn func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fn()
}

// ReassignLocked is Reassign for callers already inside WithLock.
func (q *Queue) ReassignLocked(ctx context.Context, assignmentID string, newDate core.Date) (*core.Assignment, error) {
	return q.reassign(ctx, assignmentID, newDate)
}
