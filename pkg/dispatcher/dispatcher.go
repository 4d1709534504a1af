// Package dispatcher drives due assignments through a publish adapter.
//
// The engine itself never performs a publish; a Dispatcher polls the store
// for assignments whose effective instant has arrived, hands each to the
// caller's Publisher, and records the outcome through the lifecycle
// tracker. A failed publish is recorded once — retries are an explicit
// operator action, never automatic.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/lifecycle"
)

// Publisher is the outbound adapter contract. Implementations perform the
// actual platform post. Returning nil reports success; any error is
// recorded as the assignment's failure reason.
type Publisher interface {
	Publish(ctx context.Context, item *core.ContentItem, a *core.Assignment) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, item *core.ContentItem, a *core.Assignment) error

func (f PublisherFunc) Publish(ctx context.Context, item *core.ContentItem, a *core.Assignment) error {
	return f(ctx, item, a)
}

// Dispatcher polls for due assignments and publishes them through a
// bounded goroutine pool.
type Dispatcher struct {
	store   core.Store
	tracker *lifecycle.Tracker
	pub     Publisher
	config  Config
	logger  *slog.Logger
	clock   func() time.Time
	wg      sync.WaitGroup

	// inflight guards against re-dispatching an assignment that is still
	// being published when the next poll tick fires.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// New creates a dispatcher. The tracker supplies both the store to poll
// and the outcome recording path.
func New(tracker *lifecycle.Tracker, store core.Store, pub Publisher, opts ...Option) *Dispatcher {
	config := Config{
		PollInterval: time.Second,
		Concurrency:  4,
	}
	for _, opt := range opts {
		opt.apply(&config)
	}

	d := &Dispatcher{
		store:    store,
		tracker:  tracker,
		pub:      pub,
		config:   config,
		logger:   slog.Default(),
		clock:    time.Now,
		inflight: make(map[string]struct{}),
	}
	if config.Logger != nil {
		d.logger = config.Logger
	}
	if config.Clock != nil {
		d.clock = config.Clock
	}
	return d
}

// Start begins polling. Blocks until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	dueChan := make(chan *core.Assignment, d.config.Concurrency)

	for i := 0; i < d.config.Concurrency; i++ {
		d.wg.Add(1)
		go d.publishLoop(ctx, dueChan)
	}

	if d.config.PruneSchedule != nil {
		go d.runPruner(ctx)
	}

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(dueChan)
			d.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			due, err := d.store.ListDue(ctx, d.clock(), d.config.Concurrency*2)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					d.logger.Error("failed to list due assignments", "error", err)
				}
				continue
			}
			for _, a := range due {
				if !d.markInflight(a.ID) {
					continue
				}
				select {
				case dueChan <- a:
				case <-ctx.Done():
					d.clearInflight(a.ID)
				}
			}
		}
	}
}

func (d *Dispatcher) publishLoop(ctx context.Context, due <-chan *core.Assignment) {
	defer d.wg.Done()
	for a := range due {
		d.dispatch(ctx, a)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, a *core.Assignment) {
	defer d.clearInflight(a.ID)

	item, err := d.store.GetItem(ctx, a.ItemID)
	if err != nil {
		d.logger.Error("due assignment has no item", "assignment_id", a.ID, "item_id", a.ItemID, "error", err)
		if _, repErr := d.tracker.Report(ctx, a.ID, lifecycle.Failure("content item missing: "+a.ItemID)); repErr != nil {
			d.logger.Error("failed to record missing-item failure", "assignment_id", a.ID, "error", repErr)
		}
		return
	}

	d.logger.Debug("publishing assignment",
		"assignment_id", a.ID, "item_id", item.ID,
		"platform", item.Platform, "due", a.EffectiveAt())

	if err := d.pub.Publish(ctx, item, a); err != nil {
		if _, repErr := d.tracker.Report(ctx, a.ID, lifecycle.Failure(err.Error())); repErr != nil {
			d.logger.Error("failed to record publish failure", "assignment_id", a.ID, "error", repErr)
		}
		return
	}
	if _, err := d.tracker.Report(ctx, a.ID, lifecycle.Success()); err != nil {
		d.logger.Error("failed to record publish success", "assignment_id", a.ID, "error", err)
	}
}

// runPruner deletes old published assignments on the configured cron
// schedule.
func (d *Dispatcher) runPruner(ctx context.Context) {
	for {
		next := d.config.PruneSchedule.Next(d.clock())
		timer := time.NewTimer(next.Sub(d.clock()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			cutoff := d.clock().Add(-d.config.PruneRetention)
			n, err := d.store.PrunePublished(ctx, cutoff)
			if err != nil {
				d.logger.Error("prune failed", "error", err)
				continue
			}
			if n > 0 {
				d.logger.Info("pruned published assignments", "count", n, "older_than", cutoff)
			}
		}
	}
}

func (d *Dispatcher) markInflight(id string) bool {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	if _, busy := d.inflight[id]; busy {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) clearInflight(id string) {
	d.inflightMu.Lock()
	delete(d.inflight, id)
	d.inflightMu.Unlock()
}
