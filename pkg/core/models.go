package core

import (
	"time"
)

// PublishStatus represents the lifecycle state of an assignment.
type PublishStatus string

const (
	StatusScheduled PublishStatus = "scheduled"
	StatusPublished PublishStatus = "published" // terminal
	StatusFailed    PublishStatus = "failed"    // terminal unless retried
)

// ContentType classifies a content item.
type ContentType string

const (
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentCarousel ContentType = "carousel"
	ContentText     ContentType = "text"
)

// TimeSlot is a named recurring time of day at which content may publish.
// Slots are created and mutated only through the registry; IDs are
// generated once and never reused. Within one registry no two slots share
// a time; duplicate names are allowed.
type TimeSlot struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	At        TimeOfDay `gorm:"embedded;embeddedPrefix:at_" json:"at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContentItem is the engine's read-only view of an authored piece of
// content. The authoring system owns these records; the engine captures a
// copy at scheduling time and never mutates it.
type ContentItem struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Title     string      `gorm:"size:255;not null" json:"title"`
	Type      ContentType `gorm:"size:20;not null" json:"type"`
	Platform  string      `gorm:"index;size:64" json:"platform"`
	Campaign  string      `gorm:"index;size:128" json:"campaign,omitempty"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// Assignment binds one content item to one (slot, date) pair.
// At most one assignment may occupy a given pair at any time; the
// scheduling queue enforces this when claiming and the unique index backs
// it up at the storage layer.
//
// At is a snapshot of the slot's time taken when the pair is claimed (and
// refreshed if the slot is rescheduled). The snapshot keeps orphaned
// assignments projectable after their slot is deleted.
type Assignment struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	ItemID        string        `gorm:"index;size:36;not null" json:"item_id"`
	SlotID        string        `gorm:"size:36;not null;uniqueIndex:idx_assignments_slot_date" json:"slot_id"`
	Date          Date          `gorm:"type:date;not null;uniqueIndex:idx_assignments_slot_date" json:"date"`
	At            TimeOfDay     `gorm:"embedded;embeddedPrefix:at_" json:"at"`
	Status        PublishStatus `gorm:"index;size:16;default:'scheduled'" json:"status"`
	FailureReason string        `gorm:"type:text" json:"failure_reason,omitempty"`
	Orphaned      bool          `gorm:"default:false" json:"orphaned"`
	PublishedAt   *time.Time    `json:"published_at,omitempty"`
	FailedAt      *time.Time    `json:"failed_at,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveAt returns the instant the assignment is due to publish:
// its date combined with the snapshotted slot time, in UTC.
func (a *Assignment) EffectiveAt() time.Time {
	return a.At.On(a.Date)
}
