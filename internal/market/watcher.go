package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Watcher reloads a catalog on a fixed interval.
type Watcher struct {
	sched    gocron.Scheduler
	interval time.Duration
	load     func(ctx context.Context) error
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher schedules load every interval. Nothing runs until Start.
// Each run gets a context that is cancelled by Stop.
func NewWatcher(interval time.Duration, load func(ctx context.Context) error, log *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{sched: sched, interval: interval, load: load, log: log, ctx: ctx, cancel: cancel}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.run),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduling catalog reload: %w", err)
	}
	return w, nil
}

// Interval returns the reload period.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Start begins running reloads, the first one immediately.
func (w *Watcher) Start() {
	w.sched.Start()
}

// Stop cancels any running reload and shuts the scheduler down.
func (w *Watcher) Stop() error {
	w.cancel()
	return w.sched.Shutdown()
}

func (w *Watcher) run() {
	if err := w.load(w.ctx); err != nil {
		w.log.Warn("scheduled catalog reload failed", "err", err)
	}
}

// WatchCatalog schedules LoadAll on c with r every interval. Observe
// results with WithOnChange on the catalog.
func WatchCatalog(c *Catalog, r ItemReader, interval time.Duration, log *slog.Logger) (*Watcher, error) {
	return NewWatcher(interval, func(ctx context.Context) error {
		return c.LoadAll(ctx, r)
	}, log)
}
