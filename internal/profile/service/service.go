// Package service resolves roles and account status for signed-in users.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/platform/sentinel"
	s "lostfound/pkg/string"
)

// InactiveRemedy is shown whenever an inactive account is turned away.
const InactiveRemedy = "contact an administrator to reactivate your account"

type Store interface {
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	ListAdmins(ctx context.Context) ([]id.UserID, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Get returns the profile or CodeProfileNotFound.
func (svc *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := svc.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeProfileNotFound, "no profile for this account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// Active returns the profile only when the account is active.
func (svc *Service) Active(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := svc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, dErrors.WithRemedy(dErrors.CodeAccountInactive, "account is inactive", InactiveRemedy)
	}
	return p, nil
}

// ResolveRole implements the auth middleware's role lookup.
func (svc *Service) ResolveRole(ctx context.Context, userID id.UserID) (string, error) {
	p, err := svc.Active(ctx, userID)
	if err != nil {
		return "", err
	}
	return string(p.Role), nil
}

// Create registers a profile for a new identity. Role defaults to finder.
func (svc *Service) Create(ctx context.Context, userID id.UserID, email, displayName string, role models.Role) (*models.Profile, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	if role == "" {
		role = models.RoleFinder
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	now := requesttime.Now(ctx)
	p := &models.Profile{
		UserID:      userID,
		Email:       s.NormalizeKey(email),
		DisplayName: displayName,
		Role:        role,
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.store.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}
	return p, nil
}

// SetStatus activates or deactivates an account. Deactivation takes effect on
// the caller's next request because roles are re-resolved per request.
func (svc *Service) SetStatus(ctx context.Context, userID id.UserID, status models.AccountStatus) (*models.Profile, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown account status")
	}
	p, err := svc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	p.Status = status
	p.UpdatedAt = requesttime.Now(ctx)
	if err := svc.store.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}
	svc.logger.InfoContext(ctx, "profile_status_changed",
		"log_type", "audit",
		"user_id", userID.String(),
		"account_status", string(status),
	)
	return p, nil
}

// Admins returns the active staff accounts that receive audit records.
func (svc *Service) Admins(ctx context.Context) ([]id.UserID, error) {
	ids, err := svc.store.ListAdmins(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list admins")
	}
	return ids, nil
}
