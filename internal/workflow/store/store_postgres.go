package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/sentinel"
)

// Constraint name from the claims migration.
const constraintPendingPerPair = "claims_one_pending_per_claimant"

const (
	itemColumns  = `id, type, description, location, found_at, photo_ref, questions, reporter_id, status, created_at, decided_at, decided_by`
	claimColumns = `id, item_id, claimant_id, code, answers, proof_photo_ref, status, created_at, decided_at, decided_by`
)

// PostgresStore persists items and claims. Bound to a transaction via
// NewPostgresTx, every method runs inside that transaction.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) SaveItem(ctx context.Context, item *models.LostItem) error {
	questions, err := json.Marshal(item.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(item.ID), item.Type, item.Description, item.Location, item.FoundAt, item.PhotoRef,
		questions, uuid.UUID(item.ReporterID), string(item.Status), item.CreatedAt,
		item.DecidedAt, nullUUID(uuid.UUID(item.DecidedBy)),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindItem(ctx context.Context, itemID id.ItemID) (*models.LostItem, error) {
	item, err := scanItem(s.execer().QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, uuid.UUID(itemID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, filter models.ItemFilter) ([]*models.LostItem, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.ReporterID.IsNil() {
		args = append(args, uuid.UUID(filter.ReporterID))
		where = append(where, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*models.LostItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// TransitionItem is a single guarded UPDATE; a row in any other status is left alone.
func (s *PostgresStore) TransitionItem(ctx context.Context, itemID id.ItemID, from, to models.ItemStatus, by id.UserID, at time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE items SET status = $3, decided_by = $4, decided_at = $5
		WHERE id = $1 AND status = $2
	`, uuid.UUID(itemID), string(from), string(to), uuid.UUID(by), at)
	if err != nil {
		return fmt.Errorf("transition item: %w", err)
	}
	return s.guardResult(ctx, res, "items", uuid.UUID(itemID))
}

func (s *PostgresStore) SaveClaim(ctx context.Context, claim *models.Claim) error {
	answers, err := json.Marshal(claim.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	// a code collision must not abort the enclosing transaction, so it is
	// reported through RowsAffected instead of a unique violation
	res, err := s.execer().ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO NOTHING
	`,
		uuid.UUID(claim.ID), uuid.UUID(claim.ItemID), uuid.UUID(claim.ClaimantID), claim.Code,
		answers, claim.ProofPhotoRef, string(claim.Status), claim.CreatedAt,
		claim.DecidedAt, nullUUID(uuid.UUID(claim.DecidedBy)),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraintPendingPerPair {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	if n == 0 {
		return ErrDuplicateCode
	}
	return nil
}

func (s *PostgresStore) FindClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.findClaim(ctx, `id = $1`, uuid.UUID(claimID))
}

func (s *PostgresStore) FindClaimByCode(ctx context.Context, code string) (*models.Claim, error) {
	return s.findClaim(ctx, `code = $1`, code)
}

func (s *PostgresStore) findClaim(ctx context.Context, where string, arg any) (*models.Claim, error) {
	claim, err := scanClaim(s.execer().QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return claim, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	where := []string{"TRUE"}
	var args []any
	if !filter.ItemID.IsNil() {
		args = append(args, uuid.UUID(filter.ItemID))
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)))
	}
	if !filter.ClaimantID.IsNil() {
		args = append(args, uuid.UUID(filter.ClaimantID))
		where = append(where, fmt.Sprintf("claimant_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func (s *PostgresStore) TransitionClaim(ctx context.Context, claimID id.ClaimID, from, to models.ClaimStatus, by id.UserID, at time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE claims SET status = $3, decided_by = $4, decided_at = $5
		WHERE id = $1 AND status = $2
	`, uuid.UUID(claimID), string(from), string(to), uuid.UUID(by), at)
	if err != nil {
		return fmt.Errorf("transition claim: %w", err)
	}
	return s.guardResult(ctx, res, "claims", uuid.UUID(claimID))
}

// guardResult tells a missing row from one in the wrong status.
func (s *PostgresStore) guardResult(ctx context.Context, res sql.Result, table string, rowID uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.execer().QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, rowID).Scan(&exists); err != nil {
		return fmt.Errorf("check %s row: %w", table, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

type row interface {
	Scan(dest ...any) error
}

func scanItem(r row) (*models.LostItem, error) {
	var (
		item             models.LostItem
		itemID, reporter uuid.UUID
		status           string
		questions        []byte
		decidedAt        sql.NullTime
		decidedBy        uuid.NullUUID
	)
	if err := r.Scan(&itemID, &item.Type, &item.Description, &item.Location, &item.FoundAt, &item.PhotoRef,
		&questions, &reporter, &status, &item.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &item.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	item.ID = id.ItemID(itemID)
	item.ReporterID = id.UserID(reporter)
	item.Status = models.ItemStatus(status)
	item.DecidedBy = id.UserID(decidedBy.UUID)
	if decidedAt.Valid {
		item.DecidedAt = &decidedAt.Time
	}
	return &item, nil
}

func scanClaim(r row) (*models.Claim, error) {
	var (
		claim                     models.Claim
		claimID, itemID, claimant uuid.UUID
		status                    string
		answers                   []byte
		decidedAt                 sql.NullTime
		decidedBy                 uuid.NullUUID
	)
	if err := r.Scan(&claimID, &itemID, &claimant, &claim.Code, &answers, &claim.ProofPhotoRef,
		&status, &claim.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &claim.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	claim.ID = id.ClaimID(claimID)
	claim.ItemID = id.ItemID(itemID)
	claim.ClaimantID = id.UserID(claimant)
	claim.Status = models.ClaimStatus(status)
	claim.DecidedBy = id.UserID(decidedBy.UUID)
	if decidedAt.Valid {
		claim.DecidedAt = &decidedAt.Time
	}
	return &claim, nil
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
