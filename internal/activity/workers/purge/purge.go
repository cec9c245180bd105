// Package purge deletes activity records that both audiences have cleared.
package purge

import (
	"context"
	"log/slog"
	"time"
)

// Store deletes purgeable records created before cutoff.
type Store interface {
	PurgeCleared(ctx context.Context, cutoff time.Time) (int, error)
}

type Result struct {
	Purged   int
	Duration time.Duration
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

type Worker struct {
	store     Store
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates a worker that keeps cleared records for retention before deleting them.
func New(store Store, retention time.Duration, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		logger:    slog.Default(),
		interval:  time.Hour,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("activity_purge_failed", "error", err)
				continue
			}
			if res.Purged > 0 {
				w.logger.Info("activity_purge_completed",
					"records_purged", res.Purged,
					"duration_ms", res.Duration.Milliseconds(),
				)
			}
		case <-ctx.Done():
			w.logger.Info("activity purge worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	purged, err := w.store.PurgeCleared(ctx, w.now().Add(-w.retention))
	if err != nil {
		return nil, err
	}
	return &Result{Purged: purged, Duration: time.Since(start)}, nil
}
