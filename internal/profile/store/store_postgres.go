package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	var (
		p   models.Profile
		raw uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, display_name, role, account_status, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`, uuid.UUID(userID)).Scan(&raw, &p.Email, &p.DisplayName, &p.Role, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.UserID = id.UserID(raw)
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, display_name, role, account_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			account_status = EXCLUDED.account_status,
			updated_at = EXCLUDED.updated_at
	`, uuid.UUID(p.UserID), p.Email, p.DisplayName, p.Role, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAdmins(ctx context.Context) ([]id.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM profiles
		WHERE role = 'admin' AND account_status = 'active'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, id.UserID(raw))
	}
	return out, rows.Err()
}
