// Package postplan provides a content scheduling and queue engine:
// recurring daily publish slots, collision-free assignment of content to
// future publish instants, calendar projection, and a publish lifecycle
// tracker.
//
// This is the main package users should import. It re-exports the public
// types from the internal pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Create storage and engine
//	db, _ := gorm.Open(sqlite.Open("postplan.db"), &gorm.Config{})
//	store := postplan.NewGormStore(db)
//	store.Migrate(context.Background())
//	eng := postplan.New(store)
//
//	// Configure slots
//	eng.AddSlot(ctx, "Morning", postplan.MustTimeOfDay(9, 0))
//	eng.AddSlot(ctx, "Midday", postplan.MustTimeOfDay(12, 0))
//
//	// Schedule content
//	a, _ := eng.ScheduleItem(ctx, &postplan.ContentItem{
//	    Title:    "Launch teaser",
//	    Type:     postplan.ContentImage,
//	    Platform: "instagram",
//	}, postplan.NewDate(2024, time.June, 1))
//
//	// Project the month view
//	buckets, _ := eng.GetCalendarView(ctx, postplan.ViewMonth, a.Date, postplan.Filter{})
package postplan

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/postplanner/postplan/pkg/calendar"
	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/dispatcher"
	"github.com/postplanner/postplan/pkg/engine"
	"github.com/postplanner/postplan/pkg/lifecycle"
	"github.com/postplanner/postplan/pkg/queue"
	"github.com/postplanner/postplan/pkg/registry"
	"github.com/postplanner/postplan/pkg/storage"
)

// Type aliases for the public API
type (
	// TimeOfDay is a wall-clock point within a day with total ordering.
	TimeOfDay = core.TimeOfDay

	// Date is a calendar day without a time of day or zone.
	Date = core.Date

	// TimeSlot is a named recurring time of day at which content may publish.
	TimeSlot = core.TimeSlot

	// ContentItem is the engine's read-only view of an authored piece of content.
	ContentItem = core.ContentItem

	// ContentType classifies a content item.
	ContentType = core.ContentType

	// Assignment binds one content item to one (slot, date) pair.
	Assignment = core.Assignment

	// PublishStatus represents the lifecycle state of an assignment.
	PublishStatus = core.PublishStatus

	// Store defines the persistence layer contract.
	Store = core.Store

	// Event is the interface for all engine events.
	Event = core.Event

	// AssignmentScheduled is emitted when an item is assigned a pair.
	AssignmentScheduled = core.AssignmentScheduled

	// AssignmentRescheduled is emitted when an assignment moves.
	AssignmentRescheduled = core.AssignmentRescheduled

	// AssignmentCancelled is emitted when an assignment is removed.
	AssignmentCancelled = core.AssignmentCancelled

	// AssignmentPublished is emitted on a successful publish outcome.
	AssignmentPublished = core.AssignmentPublished

	// AssignmentFailed is emitted on a failed publish outcome.
	AssignmentFailed = core.AssignmentFailed

	// AssignmentRetried is emitted when a failed assignment is re-queued.
	AssignmentRetried = core.AssignmentRetried

	// SlotRemoved is emitted when a slot is deleted from the registry.
	SlotRemoved = core.SlotRemoved

	// TransitionError reports an illegal publish-status transition.
	TransitionError = core.TransitionError

	// Engine is the content scheduling engine for one workspace.
	Engine = engine.Engine

	// Registry owns the recurring slot set for one workspace.
	Registry = registry.Registry

	// PresetSlot is one entry of a slot preset.
	PresetSlot = registry.PresetSlot

	// Queue assigns content items to publish slots.
	Queue = queue.Queue

	// Tracker applies publish-status transitions to assignments.
	Tracker = lifecycle.Tracker

	// Outcome is a publish adapter's report for one assignment.
	Outcome = lifecycle.Outcome

	// ViewMode selects the calendar projection shape.
	ViewMode = calendar.ViewMode

	// Bucket is one cell of a calendar view.
	Bucket = calendar.Bucket

	// Filter narrows an assignment set before projection.
	Filter = calendar.Filter

	// Dispatcher polls for due assignments and publishes them.
	Dispatcher = dispatcher.Dispatcher

	// Publisher is the outbound publish adapter contract.
	Publisher = dispatcher.Publisher

	// PublisherFunc adapts a function to the Publisher interface.
	PublisherFunc = dispatcher.PublisherFunc

	// GormStore implements Store using GORM.
	GormStore = storage.GormStore

	// MemoryStore implements Store with in-process maps.
	MemoryStore = storage.MemoryStore
)

// Publish status constants
const (
	StatusScheduled = core.StatusScheduled
	StatusPublished = core.StatusPublished
	StatusFailed    = core.StatusFailed
)

// Content type constants
const (
	ContentImage    = core.ContentImage
	ContentVideo    = core.ContentVideo
	ContentCarousel = core.ContentCarousel
	ContentText     = core.ContentText
)

// Calendar view mode constants
const (
	ViewMonth = calendar.ViewMonth
	ViewWeek  = calendar.ViewWeek
	ViewDay   = calendar.ViewDay
)

// Error values
var (
	ErrMalformedTime      = core.ErrMalformedTime
	ErrMalformedDate      = core.ErrMalformedDate
	ErrEmptySlotName      = core.ErrEmptySlotName
	ErrDuplicateSlotTime  = core.ErrDuplicateSlotTime
	ErrSlotNotFound       = core.ErrSlotNotFound
	ErrAssignmentNotFound = core.ErrAssignmentNotFound
	ErrItemNotFound       = core.ErrItemNotFound
	ErrNoSlotsConfigured  = core.ErrNoSlotsConfigured
	ErrAlreadyPublished   = core.ErrAlreadyPublished
	ErrNotFailed          = core.ErrNotFailed
)

// Built-in slot presets
var (
	PresetClassic    = registry.PresetClassic
	PresetPrimeTime  = registry.PresetPrimeTime
	PresetHighVolume = registry.PresetHighVolume
)

// EngineOption configures an Engine.
type EngineOption = engine.Option

// DispatcherOption configures a Dispatcher.
type DispatcherOption = dispatcher.Option

// WithLogger sets the logger shared by the engine's components.
func WithLogger(l *slog.Logger) EngineOption { return engine.WithLogger(l) }

// WithClock replaces the engine's time source.
func WithClock(clock func() time.Time) EngineOption { return engine.WithClock(clock) }

// WithPollInterval sets how often a dispatcher polls for due assignments.
func WithPollInterval(d time.Duration) DispatcherOption { return dispatcher.PollInterval(d) }

// WithConcurrency sets how many assignments a dispatcher publishes at once.
func WithConcurrency(n int) DispatcherOption { return dispatcher.Concurrency(n) }

// WithPrune enables periodic deletion of published assignments older than
// retention, on a standard cron schedule.
func WithPrune(spec string, retention time.Duration) DispatcherOption {
	return dispatcher.WithPrune(spec, retention)
}

// New wires an engine over the given store.
func New(store Store, opts ...EngineOption) *Engine {
	return engine.New(store, opts...)
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return storage.NewGormStore(db)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return storage.NewMemoryStore()
}

// NewDispatcher creates a dispatcher over an engine and a publish adapter.
func NewDispatcher(eng *Engine, pub Publisher, opts ...DispatcherOption) *Dispatcher {
	return dispatcher.New(eng.Tracker(), eng.Store(), pub, opts...)
}

// NewTimeOfDay validates hour and minute and returns the value.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	return core.NewTimeOfDay(hour, minute)
}

// MustTimeOfDay is like NewTimeOfDay but panics on invalid input.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	return core.MustTimeOfDay(hour, minute)
}

// ParseTimeOfDay parses zero-padded "HH:MM" in 24-hour notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	return core.ParseTimeOfDay(s)
}

// NewDate builds a Date, normalizing out-of-range values.
func NewDate(year int, month time.Month, day int) Date {
	return core.NewDate(year, month, day)
}

// DateOf extracts the calendar day from an instant.
func DateOf(t time.Time) Date {
	return core.DateOf(t)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	return core.ParseDate(s)
}

// Success reports a completed publish.
func Success() Outcome { return lifecycle.Success() }

// Failure reports a rejected publish with an operator-facing reason.
func Failure(reason string) Outcome { return lifecycle.Failure(reason) }

// Project buckets assignments for a calendar view. It is pure and can be
// called without an Engine.
func Project(assignments []Assignment, mode ViewMode, anchor Date, opts ...calendar.Option) []Bucket {
	return calendar.Project(assignments, mode, anchor, opts...)
}
