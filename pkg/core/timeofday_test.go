package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in     string
		hour   int
		minute int
	}{
		{"00:00", 0, 0},
		{"09:30", 9, 30},
		{"12:00", 12, 0},
		{"23:59", 23, 59},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.hour, got.Hour)
		assert.Equal(t, tc.minute, got.Minute)
	}
}

func TestParseTimeOfDayRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"", "9:30", "09:3", "24:00", "12:60", "ab:cd", "12-30", "12:3x", "123:0", " 9:30",
	} {
		_, err := ParseTimeOfDay(in)
		assert.ErrorIs(t, err, ErrMalformedTime, "input %q", in)
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 1, 29, 30, 59} {
			orig := MustTimeOfDay(hour, minute)
			parsed, err := ParseTimeOfDay(orig.Format())
			require.NoError(t, err)
			assert.Equal(t, orig, parsed)
		}
	}
}

func TestNewTimeOfDayBounds(t *testing.T) {
	_, err := NewTimeOfDay(-1, 0)
	assert.ErrorIs(t, err, ErrMalformedTime)
	_, err = NewTimeOfDay(24, 0)
	assert.ErrorIs(t, err, ErrMalformedTime)
	_, err = NewTimeOfDay(0, 60)
	assert.ErrorIs(t, err, ErrMalformedTime)

	// Arbitrary minutes are accepted; the half-hour restriction is a
	// registry preset convention, not a type rule.
	got, err := NewTimeOfDay(13, 47)
	require.NoError(t, err)
	assert.Equal(t, "13:47", got.Format())
}

func TestTimeOfDayOrdering(t *testing.T) {
	a := MustTimeOfDay(9, 0)
	b := MustTimeOfDay(9, 30)
	c := MustTimeOfDay(12, 0)

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, a.Compare(MustTimeOfDay(9, 0)))
	assert.True(t, a.Before(b))
	assert.True(t, c.After(b))
}

func TestTimeOfDayOn(t *testing.T) {
	at := MustTimeOfDay(19, 30)
	d := NewDate(2024, time.June, 1)
	assert.Equal(t, time.Date(2024, time.June, 1, 19, 30, 0, 0, time.UTC), at.On(d))
}
