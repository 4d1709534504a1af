package core

import "time"

// Event is the interface for all engine events.
type Event interface {
	eventMarker()
}

// AssignmentScheduled is emitted when an item is first assigned a
// (slot, date) pair.
type AssignmentScheduled struct {
	Assignment *Assignment
	Item       *ContentItem
	Timestamp  time.Time
}

func (*AssignmentScheduled) eventMarker() {}

// AssignmentRescheduled is emitted when an assignment moves to a new pair.
type AssignmentRescheduled struct {
	Assignment *Assignment
	PrevSlotID string
	PrevDate   Date
	Timestamp  time.Time
}

func (*AssignmentRescheduled) eventMarker() {}

// AssignmentCancelled is emitted when an assignment is removed, freeing
// its pair.
type AssignmentCancelled struct {
	Assignment *Assignment
	Timestamp  time.Time
}

func (*AssignmentCancelled) eventMarker() {}

// AssignmentPublished is emitted when a publish adapter reports success.
type AssignmentPublished struct {
	Assignment *Assignment
	Timestamp  time.Time
}

func (*AssignmentPublished) eventMarker() {}

// AssignmentFailed is emitted when a publish adapter reports failure.
type AssignmentFailed struct {
	Assignment *Assignment
	Reason     string
	Timestamp  time.Time
}

func (*AssignmentFailed) eventMarker() {}

// AssignmentRetried is emitted when a failed assignment is re-queued.
type AssignmentRetried struct {
	Assignment *Assignment
	PrevDate   Date
	Timestamp  time.Time
}

func (*AssignmentRetried) eventMarker() {}

// SlotRemoved is emitted when a slot is deleted from the registry.
// Orphaned counts the assignments left pointing at the removed slot.
type SlotRemoved struct {
	Slot      *TimeSlot
	Orphaned  int64
	Timestamp time.Time
}

func (*SlotRemoved) eventMarker() {}
