// Package service writes and reads activity records: notifications for the
// user a record is addressed to, and the audit log for admins.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lostfound/internal/activity/models"
	"lostfound/internal/platform/metrics"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, recs []*models.Record) error
	// ListByRecipient returns the user's records that are not user-cleared, newest first.
	ListByRecipient(ctx context.Context, userID id.UserID) ([]*models.Record, error)
	MarkViewed(ctx context.Context, userID id.UserID, at time.Time) (int, error)
	// ListAudit returns records that are not admin-cleared, newest first.
	ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.Record, error)
	ClearAdmin(ctx context.Context, before time.Time) (int, error)
	ClearUser(ctx context.Context, userID id.UserID, before time.Time) (int, error)
}

// Forwarder receives every stored record. It must not block for long.
type Forwarder interface {
	Forward(ctx context.Context, rec *models.Record)
}

type Config struct {
	DefaultAuditLimit int
	MaxAuditLimit     int
}

func DefaultConfig() Config {
	return Config{DefaultAuditLimit: 100, MaxAuditLimit: 500}
}

type Service struct {
	store     Store
	forwarder Forwarder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	config    Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func WithForwarder(f Forwarder) Option {
	return func(svc *Service) {
		svc.forwarder = f
	}
}

func WithConfig(cfg Config) Option {
	return func(svc *Service) {
		if cfg.DefaultAuditLimit > 0 {
			svc.config.DefaultAuditLimit = cfg.DefaultAuditLimit
		}
		if cfg.MaxAuditLimit > 0 {
			svc.config.MaxAuditLimit = cfg.MaxAuditLimit
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store is required")
	}
	svc := &Service{store: store, logger: slog.Default(), config: DefaultConfig()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Record stores recs in one write, stamping ids and the request time.
func (svc *Service) Record(ctx context.Context, recs ...*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	now := requesttime.Now(ctx)
	for _, r := range recs {
		if !r.Kind.IsValid() || !r.Audience.IsValid() {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("invalid activity record %q/%q", r.Kind, r.Audience))
		}
		if r.Audience == models.AudienceUser && !r.HasRecipient() {
			return dErrors.New(dErrors.CodeInvariantViolation, "notification without recipient")
		}
		if r.ID.IsNil() {
			r.ID = id.NewActivityID()
		}
		r.CreatedAt = now
	}
	if err := svc.store.Append(ctx, recs); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record activity")
	}
	for _, r := range recs {
		svc.metrics.IncActivity(string(r.Audience))
		if svc.forwarder != nil {
			svc.forwarder.Forward(ctx, r)
		}
	}
	return nil
}

// Notifications returns the user's feed.
func (svc *Service) Notifications(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	recs, err := svc.store.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notifications")
	}
	return recs, nil
}

func (svc *Service) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	recs, err := svc.Notifications(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		if r.Unread() {
			n++
		}
	}
	return n, nil
}

// Ack marks every unread notification of userID as viewed.
func (svc *Service) Ack(ctx context.Context, userID id.UserID) (int, error) {
	n, err := svc.store.MarkViewed(ctx, userID, requesttime.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acknowledge notifications")
	}
	return n, nil
}

// AuditLog returns the admin log. The limit is clamped to the configured maximum.
func (svc *Service) AuditLog(ctx context.Context, filter models.AuditFilter) ([]*models.Record, error) {
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown activity kind")
	}
	if filter.Audience != "" && !filter.Audience.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown audience")
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Since.Before(filter.Until) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "since must be before until")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = svc.config.DefaultAuditLimit
	case filter.Limit > svc.config.MaxAuditLimit:
		filter.Limit = svc.config.MaxAuditLimit
	}
	recs, err := svc.store.ListAudit(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit log")
	}
	return recs, nil
}

// Clear hides records up to now for one audience. The admin scope needs an
// admin caller; the user scope only ever touches the caller's own feed.
func (svc *Service) Clear(ctx context.Context, scope models.ClearScope, caller requestcontext.Principal) (int, error) {
	if !scope.IsValid() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "scope must be admin or user")
	}
	now := requesttime.Now(ctx)
	var (
		n   int
		err error
	)
	switch scope {
	case models.ScopeAdmin:
		if !caller.IsAdmin() {
			return 0, dErrors.New(dErrors.CodeForbidden, "only admins can clear the audit log")
		}
		n, err = svc.store.ClearAdmin(ctx, now)
	case models.ScopeUser:
		n, err = svc.store.ClearUser(ctx, caller.UserID, now)
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear activity")
	}
	svc.logger.InfoContext(ctx, "activity cleared",
		"event", "activity_cleared",
		"log_type", "audit",
		"scope", string(scope),
		"user_id", caller.UserID.String(),
		"records", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return n, nil
}
