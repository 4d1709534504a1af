package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrMalformedTime   = errors.New("postplan: malformed time of day (want \"HH:MM\", 24-hour)")
	ErrMalformedDate   = errors.New("postplan: malformed date (want \"YYYY-MM-DD\")")
	ErrEmptySlotName   = errors.New("postplan: slot name must not be empty")
	ErrSlotNameTooLong = errors.New("postplan: slot name too long")
	ErrEmptyTitle      = errors.New("postplan: content title must not be empty")
	ErrTitleTooLong    = errors.New("postplan: content title too long")
	ErrInvalidPlatform = errors.New("postplan: invalid platform identifier")
	ErrInvalidContent  = errors.New("postplan: unknown content type")
)

// Not-found errors
var (
	ErrSlotNotFound       = errors.New("postplan: slot not found")
	ErrAssignmentNotFound = errors.New("postplan: assignment not found")
	ErrItemNotFound       = errors.New("postplan: content item not found")
)

// Conflict and capacity errors
var (
	// ErrDuplicateSlotTime is returned by registry mutations when another
	// slot already occupies the requested time. The queue never surfaces
	// it: same-day collisions are resolved internally by cascading.
	ErrDuplicateSlotTime = errors.New("postplan: a slot with that time already exists")

	// ErrSlotOccupied is the internal signal that a (slot, date) pair is
	// taken. The cascade consumes it and moves on; callers only ever see
	// it through errors.Is when implementing their own Store.
	ErrSlotOccupied = errors.New("postplan: slot already occupied for that date")

	ErrNoSlotsConfigured = errors.New("postplan: no publish slots configured")
)

// Lifecycle errors
var (
	ErrAlreadyPublished = errors.New("postplan: assignment already published")
	ErrNotFailed        = errors.New("postplan: only failed assignments can be retried")
)

// TransitionError reports an illegal publish-status transition.
type TransitionError struct {
	AssignmentID string
	From         PublishStatus
	To           PublishStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("postplan: assignment %s cannot move from %s to %s", e.AssignmentID, e.From, e.To)
}

// Is makes errors.Is(err, ErrAlreadyPublished) work for transitions out
// of the published state.
func (e *TransitionError) Is(target error) bool {
	return target == ErrAlreadyPublished && e.From == StatusPublished
}
