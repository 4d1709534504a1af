package dispatcher

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/postplanner/postplan/pkg/validate"
)

// Config holds dispatcher configuration.
type Config struct {
	PollInterval   time.Duration
	Concurrency    int
	Logger         *slog.Logger
	Clock          func() time.Time
	PruneSchedule  cron.Schedule
	PruneRetention time.Duration
}

// Option configures a Dispatcher.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// PollInterval sets how often the store is polled for due assignments.
func PollInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	})
}

// Concurrency sets how many assignments may publish at once.
// Values are clamped to [1, validate.MaxConcurrency].
func Concurrency(n int) Option {
	return optionFunc(func(c *Config) {
		c.Concurrency = validate.ClampConcurrency(n)
	})
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) { c.Logger = l })
}

// WithClock replaces the dispatcher's time source.
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(c *Config) { c.Clock = clock })
}

// WithPrune enables periodic deletion of published assignments older than
// retention. The spec is a standard five-field cron expression
// (e.g. "0 3 * * *" for 03:00 daily). Panics on a malformed expression,
// matching how registration-time programmer errors are handled elsewhere.
func WithPrune(spec string, retention time.Duration) Option {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		panic("postplan: invalid prune cron expression " + spec + ": " + err.Error())
	}
	return optionFunc(func(c *Config) {
		c.PruneSchedule = sched
		c.PruneRetention = retention
	})
}
