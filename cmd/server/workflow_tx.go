package main

import (
	"context"
	"database/sql"
	"time"

	"lostfound/internal/platform/metrics"
	workflowservice "lostfound/internal/workflow/service"
	workflowstore "lostfound/internal/workflow/store"
	dErrors "lostfound/pkg/domain-errors"
	txcontext "lostfound/pkg/platform/tx"
)

const defaultWorkflowTxTimeout = 5 * time.Second

// workflowPostgresTx runs item and claim mutations in one database
// transaction. The transaction also travels in ctx so activity records
// written by fn commit or roll back with the status change.
type workflowPostgresTx struct {
	db      *sql.DB
	metrics *metrics.Metrics
	timeout time.Duration
}

func newWorkflowPostgresTx(db *sql.DB, m *metrics.Metrics, timeout time.Duration) *workflowPostgresTx {
	return &workflowPostgresTx{db: db, metrics: m, timeout: timeout}
}

func (t *workflowPostgresTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store workflowservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultWorkflowTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	// Serialize work on one item across server instances, the way the
	// sharded mutex does within one process.
	lockStart := time.Now()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "failed to lock item")
	}
	t.metrics.ObserveTxLockWait(time.Since(lockStart).Seconds())

	if err := fn(txcontext.WithTx(ctx, tx), workflowstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

var _ workflowservice.StoreTx = (*workflowPostgresTx)(nil)
