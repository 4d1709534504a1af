package core

import (
	"context"
	"time"
)

// Store defines the persistence layer for slots, items and assignments.
//
// Implementations must make ClaimSlot atomic: when two claims race for the
// same (slot, date) pair exactly one succeeds and the other returns
// ErrSlotOccupied. Everything above the Store serializes access per queue
// instance, so this is a backstop rather than the primary guard.
type Store interface {
	// Migrate creates the necessary tables.
	Migrate(ctx context.Context) error

	// Slots
	CreateSlot(ctx context.Context, slot *TimeSlot) error
	UpdateSlot(ctx context.Context, slot *TimeSlot) error
	DeleteSlot(ctx context.Context, id string) error
	GetSlot(ctx context.Context, id string) (*TimeSlot, error)
	ListSlots(ctx context.Context) ([]TimeSlot, error)
	// ReplaceSlots swaps the entire slot set atomically (preset apply).
	ReplaceSlots(ctx context.Context, slots []TimeSlot) error

	// Content items (read-only copies captured at scheduling time)
	SaveItem(ctx context.Context, item *ContentItem) error
	GetItem(ctx context.Context, id string) (*ContentItem, error)

	// Assignments
	ClaimSlot(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
	ListAssignments(ctx context.Context) ([]Assignment, error)
	ListBySlot(ctx context.Context, slotID string) ([]Assignment, error)
	ListRange(ctx context.Context, from, to Date) ([]Assignment, error)

	// ListDue returns scheduled, non-orphaned assignments whose effective
	// publish instant is at or before now, ordered soonest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Assignment, error)

	// MarkOrphaned flags every assignment of a removed slot and returns
	// how many were flagged.
	MarkOrphaned(ctx context.Context, slotID string) (int64, error)

	// RetimeAssignments refreshes the time snapshot of scheduled
	// assignments after their slot is rescheduled.
	RetimeAssignments(ctx context.Context, slotID string, at TimeOfDay) (int64, error)

	// PrunePublished deletes published assignments older than the cutoff.
	PrunePublished(ctx context.Context, olderThan time.Time) (int64, error)
}
