// Package registry provides the TimeSlotRegistry: the owner of the named
// recurring publish slots.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/validate"
)

// Registry owns the recurring slot set for one workspace. It enforces
// slot-time uniqueness and provides the canonical chronological ordering
// the scheduling cascade iterates in.
//
// A readers-writer lock guards the slot set: cascades read under View so
// the set cannot change mid-search, and every mutation takes the write
// lock.
type Registry struct {
	mu     sync.RWMutex
	store  core.Store
	logger *slog.Logger
}

// Option configures a Registry.
type Option interface {
	apply(*Registry)
}

type optionFunc func(*Registry)

func (f optionFunc) apply(r *Registry) { f(r) }

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(r *Registry) { r.logger = l })
}

// New creates a registry backed by the given store.
func New(store core.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// Add creates a new slot. It fails with core.ErrDuplicateSlotTime when an
// existing slot occupies the same time; duplicate names are permitted.
func (r *Registry) Add(ctx context.Context, name string, at core.TimeOfDay) (*core.TimeSlot, error) {
	if err := validate.SlotName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slots, err := r.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].At == at {
			return nil, fmt.Errorf("%w: %s is %q", core.ErrDuplicateSlotTime, at, slots[i].Name)
		}
	}

	slot := &core.TimeSlot{
		ID:   uuid.New().String(),
		Name: name,
		At:   at,
	}
	if err := r.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	r.logger.Debug("slot added", "slot_id", slot.ID, "name", name, "at", at.Format())
	return slot, nil
}

// Rename changes a slot's display name.
func (r *Registry) Rename(ctx context.Context, id, newName string) error {
	if err := validate.SlotName(newName); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.store.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	slot.Name = newName
	return r.store.UpdateSlot(ctx, slot)
}

// Reschedule moves a slot to a new time, subject to the same uniqueness
// rule as Add. Assignments keep their snapshotted time; the engine
// refreshes scheduled ones after a successful reschedule.
func (r *Registry) Reschedule(ctx context.Context, id string, at core.TimeOfDay) (*core.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.store.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := r.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].ID != id && slots[i].At == at {
			return nil, fmt.Errorf("%w: %s is %q", core.ErrDuplicateSlotTime, at, slots[i].Name)
		}
	}
	slot.At = at
	if err := r.store.UpdateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// Remove deletes a slot and returns the removed record. Assignments that
// reference the slot are NOT deleted; the caller flags them orphaned so
// user schedules survive slot churn.
func (r *Registry) Remove(ctx context.Context, id string) (*core.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.store.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteSlot(ctx, id); err != nil {
		return nil, err
	}
	r.logger.Debug("slot removed", "slot_id", id, "name", slot.Name)
	return slot, nil
}

// Slots returns the slot set sorted ascending by time of day. This is the
// canonical iteration order for the scheduling cascade.
func (r *Registry) Slots(ctx context.Context) ([]core.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedSlots(ctx)
}

// Get returns one slot by ID.
func (r *Registry) Get(ctx context.Context, id string) (*core.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.GetSlot(ctx, id)
}

// View runs fn with the sorted slot set while holding the read lock, so
// the set cannot change for the duration of fn. The scheduling cascade
// runs inside View.
func (r *Registry) View(ctx context.Context, fn func(slots []core.TimeSlot) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slots, err := r.sortedSlots(ctx)
	if err != nil {
		return err
	}
	return fn(slots)
}

// ApplyPreset atomically replaces the entire slot set. The preset is
// rejected as a whole when it contains duplicate times or an invalid
// name; the existing set is left untouched in that case.
func (r *Registry) ApplyPreset(ctx context.Context, preset []PresetSlot) error {
	seen := make(map[core.TimeOfDay]string, len(preset))
	slots := make([]core.TimeSlot, 0, len(preset))
	for _, p := range preset {
		if err := validate.SlotName(p.Name); err != nil {
			return err
		}
		if prev, dup := seen[p.At]; dup {
			return fmt.Errorf("%w: preset has %q and %q both at %s", core.ErrDuplicateSlotTime, prev, p.Name, p.At)
		}
		seen[p.At] = p.Name
		slots = append(slots, core.TimeSlot{
			ID:   uuid.New().String(),
			Name: p.Name,
			At:   p.At,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.ReplaceSlots(ctx, slots); err != nil {
		return err
	}
	r.logger.Info("slot preset applied", "slots", len(slots))
	return nil
}

func (r *Registry) sortedSlots(ctx context.Context) ([]core.TimeSlot, error) {
	slots, err := r.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].At.Before(slots[j].At)
	})
	return slots, nil
}
