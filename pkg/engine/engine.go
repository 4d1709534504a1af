// Package engine composes the registry, scheduling queue, lifecycle
// tracker and calendar projector into the single surface an embedding
// application talks to.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/postplanner/postplan/pkg/calendar"
	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/lifecycle"
	"github.com/postplanner/postplan/pkg/queue"
	"github.com/postplanner/postplan/pkg/registry"
)

// Engine is the content scheduling engine for one workspace. Construct
// one per tenant over its own Store and pass it by reference; there is no
// ambient singleton.
type Engine struct {
	store    core.Store
	registry *registry.Registry
	queue    *queue.Queue
	tracker  *lifecycle.Tracker
	logger   *slog.Logger
	clock    func() time.Time
}

// Option configures an Engine.
type Option interface {
	apply(*settings)
}

type settings struct {
	logger *slog.Logger
	clock  func() time.Time
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// WithLogger sets the logger shared by the engine's components.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(s *settings) { s.logger = l })
}

// WithClock replaces the engine's time source (used by retry and event
// timestamps).
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(s *settings) { s.clock = clock })
}

// New wires an engine over the given store.
func New(store core.Store, opts ...Option) *Engine {
	s := settings{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt.apply(&s)
	}

	reg := registry.New(store, registry.WithLogger(s.logger))
	q := queue.New(store, reg, queue.WithLogger(s.logger), queue.WithClock(s.clock))
	return &Engine{
		store:    store,
		registry: reg,
		queue:    q,
		tracker:  lifecycle.New(q, lifecycle.WithLogger(s.logger), lifecycle.WithClock(s.clock)),
		logger:   s.logger,
		clock:    s.clock,
	}
}

// Store returns the engine's store (for wiring a dispatcher or UI).
func (e *Engine) Store() core.Store { return e.store }

// Queue returns the scheduling queue.
func (e *Engine) Queue() *queue.Queue { return e.queue }

// Registry returns the slot registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Tracker returns the lifecycle tracker.
func (e *Engine) Tracker() *lifecycle.Tracker { return e.tracker }

// --- Scheduling ---

// ScheduleItem assigns the item to the earliest free (slot, date) pair at
// or after the requested date.
func (e *Engine) ScheduleItem(ctx context.Context, item *core.ContentItem, requested core.Date) (*core.Assignment, error) {
	return e.queue.Schedule(ctx, item, requested)
}

// Reschedule moves an assignment, cascading from newDate.
func (e *Engine) Reschedule(ctx context.Context, assignmentID string, newDate core.Date) (*core.Assignment, error) {
	return e.queue.Reassign(ctx, assignmentID, newDate)
}

// CancelSchedule removes an assignment and frees its pair.
func (e *Engine) CancelSchedule(ctx context.Context, assignmentID string) error {
	return e.queue.Unassign(ctx, assignmentID)
}

// CloneSchedule schedules a duplicate of an assignment's content,
// starting the day after the source.
func (e *Engine) CloneSchedule(ctx context.Context, assignmentID string, newItem *core.ContentItem) (*core.Assignment, error) {
	return e.queue.Clone(ctx, assignmentID, newItem)
}

// ListBySlot returns a slot's assignments ascending by date, orphans
// included and flagged.
func (e *Engine) ListBySlot(ctx context.Context, slotID string) ([]core.Assignment, error) {
	return e.queue.BySlot(ctx, slotID)
}

// GetAssignment returns one assignment.
func (e *Engine) GetAssignment(ctx context.Context, assignmentID string) (*core.Assignment, error) {
	return e.queue.Get(ctx, assignmentID)
}

// --- Lifecycle ---

// ReportPublishOutcome records a publish adapter's result for an
// assignment.
func (e *Engine) ReportPublishOutcome(ctx context.Context, assignmentID string, outcome lifecycle.Outcome) (*core.Assignment, error) {
	return e.tracker.Report(ctx, assignmentID, outcome)
}

// Retry re-queues a failed assignment from today.
func (e *Engine) Retry(ctx context.Context, assignmentID string) (*core.Assignment, error) {
	return e.tracker.Retry(ctx, assignmentID)
}

// --- Calendar ---

// GetCalendarView projects assignments onto the view containing anchor,
// after applying the filter.
func (e *Engine) GetCalendarView(ctx context.Context, mode calendar.ViewMode, anchor core.Date, filter calendar.Filter, opts ...calendar.Option) ([]calendar.Bucket, error) {
	assignments, err := e.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}

	if filter != (calendar.Filter{}) {
		items := make(map[string]*core.ContentItem, len(assignments))
		for i := range assignments {
			id := assignments[i].ItemID
			if _, seen := items[id]; seen {
				continue
			}
			item, err := e.store.GetItem(ctx, id)
			if err != nil {
				// An item the authoring system deleted filters as unknown.
				continue
			}
			items[id] = item
		}
		assignments = filter.Apply(assignments, items)
	}

	return calendar.Project(assignments, mode, anchor, opts...), nil
}

// --- Slots ---

// ListSlots returns the slot set ascending by time.
func (e *Engine) ListSlots(ctx context.Context) ([]core.TimeSlot, error) {
	return e.registry.Slots(ctx)
}

// AddSlot creates a slot; duplicate times conflict.
func (e *Engine) AddSlot(ctx context.Context, name string, at core.TimeOfDay) (*core.TimeSlot, error) {
	return e.registry.Add(ctx, name, at)
}

// RenameSlot changes a slot's display name.
func (e *Engine) RenameSlot(ctx context.Context, slotID, newName string) error {
	return e.registry.Rename(ctx, slotID, newName)
}

// RescheduleSlot moves a slot to a new time and refreshes the time
// snapshot of its still-scheduled assignments so projections and the
// dispatcher follow the slot.
func (e *Engine) RescheduleSlot(ctx context.Context, slotID string, at core.TimeOfDay) error {
	slot, err := e.registry.Reschedule(ctx, slotID, at)
	if err != nil {
		return err
	}
	n, err := e.store.RetimeAssignments(ctx, slot.ID, slot.At)
	if err != nil {
		return err
	}
	if n > 0 {
		e.logger.Debug("assignments retimed", "slot_id", slot.ID, "count", n, "at", at.Format())
	}
	return nil
}

// RemoveSlot deletes a slot. Its assignments are preserved and flagged
// orphaned rather than cascade-deleted, so user schedules stay visible
// and reassignable.
func (e *Engine) RemoveSlot(ctx context.Context, slotID string) error {
	slot, err := e.registry.Remove(ctx, slotID)
	if err != nil {
		return err
	}
	orphaned, err := e.store.MarkOrphaned(ctx, slotID)
	if err != nil {
		return err
	}
	if orphaned > 0 {
		e.logger.Warn("slot removed with active assignments",
			"slot_id", slotID, "name", slot.Name, "orphaned", orphaned)
	}
	e.queue.Emit(&core.SlotRemoved{Slot: slot, Orphaned: orphaned, Timestamp: e.clock()})
	return nil
}

// ApplyPreset atomically replaces the slot set.
func (e *Engine) ApplyPreset(ctx context.Context, preset []registry.PresetSlot) error {
	return e.registry.ApplyPreset(ctx, preset)
}

// --- Events and hooks ---

// Events returns a channel of engine events. Call Unsubscribe when done.
func (e *Engine) Events() <-chan core.Event { return e.queue.Events() }

// Unsubscribe removes a subscriber channel created by Events().
func (e *Engine) Unsubscribe(ch <-chan core.Event) { e.queue.Unsubscribe(ch) }

// OnScheduled registers a hook called after every successful schedule or
// clone. Register hooks before concurrent use begins.
func (e *Engine) OnScheduled(fn func(context.Context, *core.Assignment)) {
	e.queue.OnScheduled(fn)
}

// OnPublished registers a hook called after a successful publish outcome.
func (e *Engine) OnPublished(fn func(context.Context, *core.Assignment)) {
	e.tracker.OnPublished(fn)
}

// OnFailed registers a hook called after a failed publish outcome, with
// the sanitized failure reason.
func (e *Engine) OnFailed(fn func(context.Context, *core.Assignment, string)) {
	e.tracker.OnFailed(fn)
}
