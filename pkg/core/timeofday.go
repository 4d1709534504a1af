package core

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock point within a day, without a date or zone.
// The zero value is midnight. TimeOfDay values are immutable and totally
// ordered by (hour, minute).
type TimeOfDay struct {
	Hour   int `gorm:"not null" json:"hour"`
	Minute int `gorm:"not null" json:"minute"`
}

// NewTimeOfDay validates hour and minute and returns the value.
// Hours run 0..23 and minutes 0..59; anything else is ErrMalformedTime.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %02d:%02d", ErrMalformedTime, hour, minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// MustTimeOfDay is like NewTimeOfDay but panics on invalid input.
// Intended for package-level preset declarations and tests.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses zero-padded "HH:MM" in 24-hour notation.
// It is the inverse of Format: ParseTimeOfDay(t.Format()) == t for every
// valid TimeOfDay t.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	digits := [4]byte{s[0], s[1], s[3], s[4]}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
	}
	hour := int(digits[0]-'0')*10 + int(digits[1]-'0')
	minute := int(digits[2]-'0')*10 + int(digits[3]-'0')
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return t, nil
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Compare returns -1, 0 or 1 ordering t against o.
func (t TimeOfDay) Compare(o TimeOfDay) int {
	switch {
	case t.Minutes() < o.Minutes():
		return -1
	case t.Minutes() > o.Minutes():
		return 1
	default:
		return 0
	}
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Compare(o) < 0 }

// After reports whether t is later in the day than o.
func (t TimeOfDay) After(o TimeOfDay) bool { return t.Compare(o) > 0 }

// Format renders the value as zero-padded "HH:MM".
func (t TimeOfDay) Format() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) String() string { return t.Format() }

// On combines the time of day with a calendar date into a UTC instant.
func (t TimeOfDay) On(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, time.UTC)
}
