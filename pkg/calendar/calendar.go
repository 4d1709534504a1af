// Package calendar projects assignments onto month, week and day views.
//
// Project is a pure function: no state, no clock, identical output for
// identical input. It can be called on every view render without locking.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/now"

	"github.com/postplanner/postplan/pkg/core"
)

// ViewMode selects the projection shape.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
)

// Bucket is one cell of a calendar view: a date (plus an hour for week
// view) and the assignments due in it, ordered by effective publish
// instant. Buckets are ephemeral and recomputed on every call.
type Bucket struct {
	Date core.Date `json:"date"`
	// Hour is the bucket's hour of day for week view, or -1 when the
	// bucket spans the whole date (month and day views).
	Hour        int               `json:"hour"`
	Assignments []core.Assignment `json:"assignments"`
}

// Key renders the bucket key: "2024-06-01" or "2024-06-01T09" for hourly
// buckets.
func (b Bucket) Key() string {
	if b.Hour < 0 {
		return b.Date.String()
	}
	return fmt.Sprintf("%sT%02d", b.Date, b.Hour)
}

// Option configures a projection.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	weekStart time.Weekday
}

// WithWeekStart overrides the first day of the week for week view.
// The default is Sunday.
func WithWeekStart(d time.Weekday) Option {
	return optionFunc(func(c *config) { c.weekStart = d })
}

// Project buckets assignments for the view containing anchor.
//
//   - month: one bucket per calendar date of the anchor's month.
//   - week: one bucket per (date, hour) across the anchor's week.
//   - day: a single bucket for the anchor date.
//
// Assignments outside the view window are dropped; an empty input yields
// the full bucket grid with empty sequences.
func Project(assignments []core.Assignment, mode ViewMode, anchor core.Date, opts ...Option) []Bucket {
	cfg := config{weekStart: time.Sunday}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	var from, to core.Date
	switch mode {
	case ViewWeek:
		n := now.Config{WeekStartDay: cfg.weekStart}
		from = core.DateOf(n.With(anchor.Time()).BeginningOfWeek())
		to = from.AddDays(6)
	case ViewDay:
		from, to = anchor, anchor
	default: // month
		n := now.Config{}
		from = core.DateOf(n.With(anchor.Time()).BeginningOfMonth())
		to = core.DateOf(n.With(anchor.Time()).EndOfMonth())
	}

	buckets := makeGrid(mode, from, to)
	index := make(map[string]int, len(buckets))
	for i := range buckets {
		index[buckets[i].Key()] = i
	}

	for _, a := range assignments {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		b := Bucket{Date: a.Date, Hour: -1}
		if mode == ViewWeek {
			b.Hour = a.At.Hour
		}
		if i, ok := index[b.Key()]; ok {
			buckets[i].Assignments = append(buckets[i].Assignments, a)
		}
	}

	for i := range buckets {
		sortByInstant(buckets[i].Assignments)
	}
	return buckets
}

// Filter narrows an assignment set by item attributes and status before
// projection. Zero-valued fields match everything.
type Filter struct {
	Platform string
	Type     core.ContentType
	Campaign string
	Status   core.PublishStatus
}

// Apply returns the assignments whose item (looked up via items, keyed by
// item ID) and status match the filter. Assignments with no known item
// are kept unless an item-attribute filter is set.
func (f Filter) Apply(assignments []core.Assignment, items map[string]*core.ContentItem) []core.Assignment {
	if f == (Filter{}) {
		return assignments
	}
	out := make([]core.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		item := items[a.ItemID]
		if f.Platform != "" && (item == nil || item.Platform != f.Platform) {
			continue
		}
		if f.Type != "" && (item == nil || item.Type != f.Type) {
			continue
		}
		if f.Campaign != "" && (item == nil || item.Campaign != f.Campaign) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func makeGrid(mode ViewMode, from, to core.Date) []Bucket {
	var buckets []Bucket
	for d := from; !d.After(to); d = d.Next() {
		if mode == ViewWeek {
			for h := 0; h < 24; h++ {
				buckets = append(buckets, Bucket{Date: d, Hour: h})
			}
			continue
		}
		buckets = append(buckets, Bucket{Date: d, Hour: -1})
	}
	return buckets
}

// sortByInstant orders assignments by effective publish instant, with ID
// as the tiebreak so the projection is deterministic.
func sortByInstant(assignments []core.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := &assignments[i], &assignments[j]
		if c := a.At.Compare(b.At); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}
