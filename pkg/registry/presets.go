package registry

import "github.com/postplanner/postplan/pkg/core"

// PresetSlot is one entry of a slot preset.
type PresetSlot struct {
	Name string
	At   core.TimeOfDay
}

// Built-in presets matching common posting cadences. Callers pass these
// (or their own) to ApplyPreset.
var (
	// PresetClassic is a three-a-day cadence around meal times.
	PresetClassic = []PresetSlot{
		{Name: "Morning", At: core.MustTimeOfDay(9, 0)},
		{Name: "Midday", At: core.MustTimeOfDay(12, 0)},
		{Name: "Evening", At: core.MustTimeOfDay(19, 0)},
	}

	// PresetPrimeTime targets engagement peaks only.
	PresetPrimeTime = []PresetSlot{
		{Name: "Lunch Peak", At: core.MustTimeOfDay(12, 30)},
		{Name: "Evening Peak", At: core.MustTimeOfDay(20, 0)},
	}

	// PresetHighVolume is a five-a-day cadence on the half hour.
	PresetHighVolume = []PresetSlot{
		{Name: "Early", At: core.MustTimeOfDay(7, 30)},
		{Name: "Morning", At: core.MustTimeOfDay(10, 0)},
		{Name: "Midday", At: core.MustTimeOfDay(12, 30)},
		{Name: "Afternoon", At: core.MustTimeOfDay(15, 30)},
		{Name: "Evening", At: core.MustTimeOfDay(19, 30)},
	}
)
