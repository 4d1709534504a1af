package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/postplanner/postplan/pkg/core"
)

// GormStore implements core.Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for embedders that share the database.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.TimeSlot{}, &core.ContentItem{}, &core.Assignment{})
}

// CreateSlot inserts a slot.
func (s *GormStore) CreateSlot(ctx context.Context, slot *core.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(slot).Error
}

// UpdateSlot saves slot changes.
func (s *GormStore) UpdateSlot(ctx context.Context, slot *core.TimeSlot) error {
	result := s.db.WithContext(ctx).Model(&core.TimeSlot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"name":      slot.Name,
			"at_hour":   slot.At.Hour,
			"at_minute": slot.At.Minute,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrSlotNotFound
	}
	return nil
}

// DeleteSlot removes a slot. Assignments referencing it are untouched.
func (s *GormStore) DeleteSlot(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&core.TimeSlot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrSlotNotFound
	}
	return nil
}

// GetSlot fetches one slot.
func (s *GormStore) GetSlot(ctx context.Context, id string) (*core.TimeSlot, error) {
	var slot core.TimeSlot
	err := s.db.WithContext(ctx).First(&slot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlots returns all slots ordered by time of day.
func (s *GormStore) ListSlots(ctx context.Context) ([]core.TimeSlot, error) {
	var slots []core.TimeSlot
	err := s.db.WithContext(ctx).
		Order("at_hour ASC, at_minute ASC, created_at ASC").
		Find(&slots).Error
	return slots, err
}

// ReplaceSlots swaps the entire slot set in one transaction.
func (s *GormStore) ReplaceSlots(ctx context.Context, slots []core.TimeSlot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&core.TimeSlot{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		return tx.Create(&slots).Error
	})
}

// SaveItem upserts the engine's read-only copy of a content item.
func (s *GormStore) SaveItem(ctx context.Context, item *core.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Save(item).Error
}

// GetItem fetches one content item copy.
func (s *GormStore) GetItem(ctx context.Context, id string) (*core.ContentItem, error) {
	var item core.ContentItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ClaimSlot inserts an assignment if its (slot, date) pair is free.
// The check and insert run in one transaction, and the unique index on
// (slot_id, date) backs the check up under concurrent writers.
func (s *GormStore) ClaimSlot(ctx context.Context, a *core.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = core.StatusScheduled
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&core.Assignment{}).
			Where("slot_id = ? AND date = ?", a.SlotID, a.Date).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return core.ErrSlotOccupied
		}
		if err := tx.Create(a).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return core.ErrSlotOccupied
			}
			return err
		}
		return nil
	})
}

// GetAssignment fetches one assignment.
func (s *GormStore) GetAssignment(ctx context.Context, id string) (*core.Assignment, error) {
	var a core.Assignment
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAssignment saves status and bookkeeping changes.
func (s *GormStore) UpdateAssignment(ctx context.Context, a *core.Assignment) error {
	result := s.db.WithContext(ctx).Model(&core.Assignment{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":         a.Status,
			"failure_reason": a.FailureReason,
			"orphaned":       a.Orphaned,
			"published_at":   a.PublishedAt,
			"failed_at":      a.FailedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrAssignmentNotFound
	}
	return nil
}

// DeleteAssignment removes an assignment, freeing its pair.
func (s *GormStore) DeleteAssignment(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&core.Assignment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrAssignmentNotFound
	}
	return nil
}

// ListAssignments returns every assignment ordered by effective instant.
func (s *GormStore) ListAssignments(ctx context.Context) ([]core.Assignment, error) {
	var out []core.Assignment
	err := s.db.WithContext(ctx).
		Order("date ASC, at_hour ASC, at_minute ASC").
		Find(&out).Error
	return out, err
}

// ListBySlot returns a slot's assignments ascending by date, including
// orphaned ones when the slot no longer exists.
func (s *GormStore) ListBySlot(ctx context.Context, slotID string) ([]core.Assignment, error) {
	var out []core.Assignment
	err := s.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("date ASC").
		Find(&out).Error
	return out, err
}

// ListRange returns assignments with from <= date <= to.
func (s *GormStore) ListRange(ctx context.Context, from, to core.Date) ([]core.Assignment, error) {
	var out []core.Assignment
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, at_hour ASC, at_minute ASC").
		Find(&out).Error
	return out, err
}

// ListDue returns scheduled, non-orphaned assignments whose effective
// instant is at or before now, soonest first.
func (s *GormStore) ListDue(ctx context.Context, nowT time.Time, limit int) ([]*core.Assignment, error) {
	nowT = nowT.UTC()
	today := core.DateOf(nowT)
	minutes := nowT.Hour()*60 + nowT.Minute()

	var out []*core.Assignment
	err := s.db.WithContext(ctx).
		Where("status = ?", core.StatusScheduled).
		Where("orphaned = ?", false).
		Where("(date < ? OR (date = ? AND at_hour * 60 + at_minute <= ?))", today, today, minutes).
		Order("date ASC, at_hour ASC, at_minute ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkOrphaned flags every assignment of a removed slot.
func (s *GormStore) MarkOrphaned(ctx context.Context, slotID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&core.Assignment{}).
		Where("slot_id = ?", slotID).
		Update("orphaned", true)
	return result.RowsAffected, result.Error
}

// RetimeAssignments refreshes the time snapshot of a rescheduled slot's
// scheduled assignments. Published and failed assignments keep the time
// they actually ran against.
func (s *GormStore) RetimeAssignments(ctx context.Context, slotID string, at core.TimeOfDay) (int64, error) {
	result := s.db.WithContext(ctx).Model(&core.Assignment{}).
		Where("slot_id = ? AND status = ?", slotID, core.StatusScheduled).
		Updates(map[string]any{"at_hour": at.Hour, "at_minute": at.Minute})
	return result.RowsAffected, result.Error
}

// PrunePublished deletes published assignments older than the cutoff.
func (s *GormStore) PrunePublished(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status = ? AND published_at < ?", core.StatusPublished, olderThan).
		Delete(&core.Assignment{})
	return result.RowsAffected, result.Error
}
