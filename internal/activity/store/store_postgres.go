// Package store persists activity records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/activity/models"
	id "lostfound/pkg/domain"
	txcontext "lostfound/pkg/platform/tx"
)

const recordColumns = `id, kind, audience, recipient_id, actor_id, item_id, claim_id,
	message, created_at, viewed_at, admin_cleared, user_cleared`

// PostgresStore persists records in the activity table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts recs in one transaction. When ctx already carries a
// transaction the records join it, so they commit or roll back with the
// status change that produced them.
func (s *PostgresStore) Append(ctx context.Context, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return insertRecords(ctx, tx, recs)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activity insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRecords(ctx, tx, recs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activity insert: %w", err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, recs []*models.Record) error {
	for _, r := range recs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO activity (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			uuid.UUID(r.ID), string(r.Kind), string(r.Audience),
			nullUUID(uuid.UUID(r.RecipientID)), nullUUID(uuid.UUID(r.ActorID)),
			nullUUID(uuid.UUID(r.ItemID)), nullUUID(uuid.UUID(r.ClaimID)),
			r.Message, r.CreatedAt, r.ViewedAt, r.AdminCleared, r.UserCleared,
		)
		if err != nil {
			return fmt.Errorf("insert activity record: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM activity
		WHERE recipient_id = $1 AND user_cleared = FALSE
		ORDER BY created_at DESC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) MarkViewed(ctx context.Context, userID id.UserID, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activity SET viewed_at = $2
		WHERE recipient_id = $1 AND viewed_at IS NULL AND user_cleared = FALSE
	`, uuid.UUID(userID), at)
	if err != nil {
		return 0, fmt.Errorf("mark notifications viewed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.Record, error) {
	where := []string{"admin_cleared = FALSE"}
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.Audience != "" {
		add("audience = $%d", string(filter.Audience))
	}
	if !filter.ActorID.IsNil() {
		add("actor_id = $%d", uuid.UUID(filter.ActorID))
	}
	if !filter.ItemID.IsNil() {
		add("item_id = $%d", uuid.UUID(filter.ItemID))
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		add("created_at < $%d", filter.Until)
	}
	query := `SELECT ` + recordColumns + ` FROM activity WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ClearAdmin(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activity SET admin_cleared = TRUE
		WHERE admin_cleared = FALSE AND created_at <= $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("clear audit log: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) ClearUser(ctx context.Context, userID id.UserID, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activity SET user_cleared = TRUE
		WHERE recipient_id = $1 AND user_cleared = FALSE AND created_at <= $2
	`, uuid.UUID(userID), before)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) PurgeCleared(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM activity
		WHERE admin_cleared = TRUE
		  AND (recipient_id IS NULL OR user_cleared = TRUE)
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge activity: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var out []*models.Record
	for rows.Next() {
		var (
			r                             models.Record
			recID                         uuid.UUID
			kind, audience                string
			recipient, actor, item, claim uuid.NullUUID
			viewedAt                      sql.NullTime
		)
		if err := rows.Scan(&recID, &kind, &audience, &recipient, &actor, &item, &claim,
			&r.Message, &r.CreatedAt, &viewedAt, &r.AdminCleared, &r.UserCleared); err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		r.ID = id.ActivityID(recID)
		r.Kind = models.Kind(kind)
		r.Audience = models.Audience(audience)
		r.RecipientID = id.UserID(recipient.UUID)
		r.ActorID = id.UserID(actor.UUID)
		r.ItemID = id.ItemID(item.UUID)
		r.ClaimID = id.ClaimID(claim.UUID)
		if viewedAt.Valid {
			t := viewedAt.Time
			r.ViewedAt = &t
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity records: %w", err)
	}
	return out, nil
}

// nullUUID stores the zero uuid as NULL.
func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
