package queue

import (
	"log/slog"
	"time"
)

// Option configures a Queue.
type Option interface {
	apply(*Queue)
}

type optionFunc func(*Queue)

func (f optionFunc) apply(q *Queue) { f(q) }

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(q *Queue) { q.logger = l })
}

// WithClock replaces the queue's time source. Tests use this to pin
// event timestamps and "now"-relative behavior.
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(q *Queue) { q.clock = clock })
}
