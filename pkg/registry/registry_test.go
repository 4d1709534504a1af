package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(storage.NewMemoryStore())
}

func TestAddSlot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	slot, err := r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.Equal(t, "Morning", slot.Name)
	assert.Equal(t, "09:00", slot.At.Format())
}

func TestAddSlotDuplicateTime(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Add(ctx, "Evening", core.MustTimeOfDay(19, 0))
	require.NoError(t, err)

	_, err = r.Add(ctx, "Dup", core.MustTimeOfDay(19, 0))
	assert.ErrorIs(t, err, core.ErrDuplicateSlotTime)

	// Duplicate names are permitted as long as the times differ.
	_, err = r.Add(ctx, "Evening", core.MustTimeOfDay(21, 0))
	assert.NoError(t, err)
}

func TestAddSlotEmptyName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(context.Background(), "  ", core.MustTimeOfDay(9, 0))
	assert.ErrorIs(t, err, core.ErrEmptySlotName)
}

func TestRenameSlot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	slot, err := r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)

	require.NoError(t, r.Rename(ctx, slot.ID, "Breakfast"))
	got, err := r.Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", got.Name)

	assert.ErrorIs(t, r.Rename(ctx, "missing", "x"), core.ErrSlotNotFound)
}

func TestRescheduleSlot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)
	b, err := r.Add(ctx, "Midday", core.MustTimeOfDay(12, 0))
	require.NoError(t, err)

	// Moving onto another slot's time conflicts.
	_, err = r.Reschedule(ctx, b.ID, core.MustTimeOfDay(9, 0))
	assert.ErrorIs(t, err, core.ErrDuplicateSlotTime)

	// Re-asserting a slot's own time is not a conflict.
	_, err = r.Reschedule(ctx, a.ID, core.MustTimeOfDay(9, 0))
	assert.NoError(t, err)

	got, err := r.Reschedule(ctx, b.ID, core.MustTimeOfDay(13, 30))
	require.NoError(t, err)
	assert.Equal(t, "13:30", got.At.Format())

	_, err = r.Reschedule(ctx, "missing", core.MustTimeOfDay(10, 0))
	assert.ErrorIs(t, err, core.ErrSlotNotFound)
}

func TestRemoveSlot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	slot, err := r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)

	removed, err := r.Remove(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, removed.ID)

	_, err = r.Get(ctx, slot.ID)
	assert.ErrorIs(t, err, core.ErrSlotNotFound)

	_, err = r.Remove(ctx, slot.ID)
	assert.ErrorIs(t, err, core.ErrSlotNotFound)
}

func TestSlotsSortedByTime(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Add(ctx, "Evening", core.MustTimeOfDay(19, 0))
	require.NoError(t, err)
	_, err = r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)
	_, err = r.Add(ctx, "Midday", core.MustTimeOfDay(12, 30))
	require.NoError(t, err)

	slots, err := r.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"Morning", "Midday", "Evening"}, []string{
		slots[0].Name, slots[1].Name, slots[2].Name,
	})
}

func TestApplyPreset(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Add(ctx, "Old", core.MustTimeOfDay(8, 0))
	require.NoError(t, err)

	require.NoError(t, r.ApplyPreset(ctx, PresetClassic))

	slots, err := r.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "Morning", slots[0].Name)
	for _, s := range slots {
		assert.NotEqual(t, "Old", s.Name)
	}
}

func TestApplyPresetRejectsInternalDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Add(ctx, "Keep", core.MustTimeOfDay(8, 0))
	require.NoError(t, err)

	bad := []PresetSlot{
		{Name: "A", At: core.MustTimeOfDay(9, 0)},
		{Name: "B", At: core.MustTimeOfDay(9, 0)},
	}
	assert.ErrorIs(t, r.ApplyPreset(ctx, bad), core.ErrDuplicateSlotTime)

	// Atomic: the existing set is untouched.
	slots, err := r.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Keep", slots[0].Name)
}

func TestViewHoldsStableSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Add(ctx, "Morning", core.MustTimeOfDay(9, 0))
	require.NoError(t, err)

	err = r.View(ctx, func(slots []core.TimeSlot) error {
		require.Len(t, slots, 1)
		return nil
	})
	require.NoError(t, err)
}
