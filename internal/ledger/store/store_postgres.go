package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lostfound/internal/ledger/models"
)

// PostgresStore persists ledger rows in login_attempts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, attempt *models.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_attempts (identity_key, attempted_at, successful, locked_until, device, ip_prefix)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, attempt.IdentityKey, attempt.At, attempt.Successful, attempt.LockedUntil, attempt.Device, attempt.IPPrefix)
	if err != nil {
		return fmt.Errorf("append login attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountFailuresSince(ctx context.Context, identityKey string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE identity_key = $1 AND successful = FALSE AND attempted_at >= $2
	`, identityKey, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) LatestLockUntil(ctx context.Context, identityKey string) (*time.Time, error) {
	var until sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(locked_until) FROM login_attempts WHERE identity_key = $1
	`, identityKey).Scan(&until)
	if err != nil {
		return nil, fmt.Errorf("read latest lockout: %w", err)
	}
	if !until.Valid {
		return nil, nil
	}
	t := until.Time
	return &t, nil
}

func (s *PostgresStore) DeleteByIdentity(ctx context.Context, identityKey string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE identity_key = $1`, identityKey)
	if err != nil {
		return 0, fmt.Errorf("delete login attempts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, attemptCutoff, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM login_attempts
		WHERE attempted_at < $1 AND (locked_until IS NULL OR locked_until <= $2)
	`, attemptCutoff, now)
	if err != nil {
		return 0, fmt.Errorf("purge login attempts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
