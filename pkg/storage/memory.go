package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postplanner/postplan/pkg/core"
)

// MemoryStore implements core.Store with in-process maps. It is the
// storage used by most of the engine's own tests and works for embedders
// that don't need schedules to survive a restart.
type MemoryStore struct {
	mu          sync.Mutex
	slots       map[string]core.TimeSlot
	items       map[string]core.ContentItem
	assignments map[string]core.Assignment
	pairs       map[pairKey]string // (slot, date) -> assignment ID
}

type pairKey struct {
	slotID string
	date   core.Date
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:       make(map[string]core.TimeSlot),
		items:       make(map[string]core.ContentItem),
		assignments: make(map[string]core.Assignment),
		pairs:       make(map[pairKey]string),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) CreateSlot(ctx context.Context, slot *core.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt
	s.slots[slot.ID] = *slot
	return nil
}

func (s *MemoryStore) UpdateSlot(ctx context.Context, slot *core.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot.ID]; !ok {
		return core.ErrSlotNotFound
	}
	slot.UpdatedAt = time.Now()
	s.slots[slot.ID] = *slot
	return nil
}

func (s *MemoryStore) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return core.ErrSlotNotFound
	}
	delete(s.slots, id)
	return nil
}

func (s *MemoryStore) GetSlot(ctx context.Context, id string) (*core.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, core.ErrSlotNotFound
	}
	return &slot, nil
}

func (s *MemoryStore) ListSlots(ctx context.Context) ([]core.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TimeSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].At.Compare(out[j].At); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ReplaceSlots(ctx context.Context, slots []core.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[string]core.TimeSlot, len(slots))
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.New().String()
		}
		s.slots[slots[i].ID] = slots[i]
	}
	return nil
}

func (s *MemoryStore) SaveItem(ctx context.Context, item *core.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	s.items[item.ID] = *item
	return nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*core.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, core.ErrItemNotFound
	}
	return &item, nil
}

func (s *MemoryStore) ClaimSlot(ctx context.Context, a *core.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{slotID: a.SlotID, date: a.Date}
	if _, taken := s.pairs[key]; taken {
		return core.ErrSlotOccupied
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = core.StatusScheduled
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = time.Now()
	s.pairs[key] = a.ID
	s.assignments[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetAssignment(ctx context.Context, id string) (*core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, core.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *MemoryStore) UpdateAssignment(ctx context.Context, a *core.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; !ok {
		return core.ErrAssignmentNotFound
	}
	a.UpdatedAt = time.Now()
	s.assignments[a.ID] = *a
	return nil
}

func (s *MemoryStore) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return core.ErrAssignmentNotFound
	}
	delete(s.pairs, pairKey{slotID: a.SlotID, date: a.Date})
	delete(s.assignments, id)
	return nil
}

func (s *MemoryStore) ListAssignments(ctx context.Context) ([]core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(core.Assignment) bool { return true }), nil
}

func (s *MemoryStore) ListBySlot(ctx context.Context, slotID string) ([]core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(a core.Assignment) bool { return a.SlotID == slotID }), nil
}

func (s *MemoryStore) ListRange(ctx context.Context, from, to core.Date) ([]core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(a core.Assignment) bool {
		return !a.Date.Before(from) && !a.Date.After(to)
	}), nil
}

func (s *MemoryStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.collect(func(a core.Assignment) bool {
		return a.Status == core.StatusScheduled && !a.Orphaned && !a.EffectiveAt().After(now.UTC())
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]*core.Assignment, len(due))
	for i := range due {
		a := due[i]
		out[i] = &a
	}
	return out, nil
}

func (s *MemoryStore) MarkOrphaned(ctx context.Context, slotID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.assignments {
		if a.SlotID == slotID && !a.Orphaned {
			a.Orphaned = true
			s.assignments[id] = a
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RetimeAssignments(ctx context.Context, slotID string, at core.TimeOfDay) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.assignments {
		if a.SlotID == slotID && a.Status == core.StatusScheduled {
			a.At = at
			s.assignments[id] = a
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PrunePublished(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.assignments {
		if a.Status == core.StatusPublished && a.PublishedAt != nil && a.PublishedAt.Before(olderThan) {
			delete(s.pairs, pairKey{slotID: a.SlotID, date: a.Date})
			delete(s.assignments, id)
			n++
		}
	}
	return n, nil
}

// collect returns matching assignments sorted by effective instant with
// ID tiebreak. Caller must hold s.mu.
func (s *MemoryStore) collect(match func(core.Assignment) bool) []core.Assignment {
	var out []core.Assignment
	for _, a := range s.assignments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if c := out[i].At.Compare(out[j].At); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}
