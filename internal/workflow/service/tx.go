package service

import (
	"context"
	"time"

	"lostfound/internal/platform/metrics"
	dErrors "lostfound/pkg/domain-errors"
	platformsync "lostfound/pkg/platform/sync"
)

// StoreTx is the transactional boundary for item and claim mutations. key
// names the item being changed; implementations may use it to serialize
// work on that item or ignore it in favour of database row locks.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store Store) error) error
}

const defaultTxTimeout = 5 * time.Second

// shardedTx serializes mutations per item for in-memory stores.
type shardedTx struct {
	mu      *platformsync.ShardedMutex
	store   Store
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewShardedTx returns a StoreTx that holds a per-item lock around fn.
func NewShardedTx(store Store, m *metrics.Metrics) StoreTx {
	return &shardedTx{mu: platformsync.NewShardedMutex(), store: store, metrics: m, timeout: defaultTxTimeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	lockStart := time.Now()
	return t.mu.WithLock(key, func() error {
		t.metrics.ObserveTxLockWait(time.Since(lockStart).Seconds())
		if err := ctx.Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
		return fn(ctx, t.store)
	})
}
