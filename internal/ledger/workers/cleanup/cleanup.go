// Package cleanup purges login ledger rows that can no longer affect a lock decision.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Store deletes rows attempted before attemptCutoff whose lock, if any, ended by now.
type Store interface {
	PurgeExpired(ctx context.Context, attemptCutoff, now time.Time) (int, error)
}

// Result describes one cleanup run.
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

// New creates a worker. retention should be at least the failure window so
// no row that still counts toward a lock is removed.
func New(store Store, retention time.Duration, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		logger:    slog.Default(),
		interval:  time.Minute,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs until ctx is cancelled. Run failures are logged and retried next tick.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("login_ledger_cleanup_failed", "error", err)
				continue
			}
			if res.Purged > 0 {
				w.logger.Info("login_ledger_cleanup_completed",
					"rows_purged", res.Purged,
					"duration_ms", res.Duration.Milliseconds(),
				)
			}
		case <-ctx.Done():
			w.logger.Info("login ledger cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	now := w.now()
	purged, err := w.store.PurgeExpired(ctx, now.Add(-w.retention), now)
	if err != nil {
		return nil, err
	}
	return &Result{Purged: purged, Duration: time.Since(start)}, nil
}
