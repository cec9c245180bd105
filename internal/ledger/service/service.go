// Package service derives lockouts from the append-only login attempt ledger.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"lostfound/internal/ledger/models"
	"lostfound/internal/platform/metrics"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/platform/privacy"
	"lostfound/pkg/requestcontext"
	s "lostfound/pkg/string"
)

// Store is pure I/O over ledger rows. Window and threshold logic stays in the service.
type Store interface {
	Append(ctx context.Context, attempt *models.Attempt) error
	// CountFailuresSince counts failed attempts at or after since.
	CountFailuresSince(ctx context.Context, identityKey string, since time.Time) (int, error)
	// LatestLockUntil returns the furthest locked_until for the identity, or nil.
	LatestLockUntil(ctx context.Context, identityKey string) (*time.Time, error)
	DeleteByIdentity(ctx context.Context, identityKey string) (int, error)
}

// Config holds the lockout policy.
type Config struct {
	Window          time.Duration
	MaxFailures     int
	LockoutDuration time.Duration
}

// DefaultConfig is five failures in five minutes, locked for five minutes.
func DefaultConfig() Config {
	return Config{
		Window:          5 * time.Minute,
		MaxFailures:     5,
		LockoutDuration: 5 * time.Minute,
	}
}

type Service struct {
	store   Store
	logger  *slog.Logger
	config  Config
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(svc *Service) {
		if cfg.Window > 0 {
			svc.config.Window = cfg.Window
		}
		if cfg.MaxFailures > 0 {
			svc.config.MaxFailures = cfg.MaxFailures
		}
		if cfg.LockoutDuration > 0 {
			svc.config.LockoutDuration = cfg.LockoutDuration
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("login ledger store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Config returns the effective policy.
func (svc *Service) Config() Config {
	return svc.config
}

// CheckLock reports whether identityKey may attempt a sign-in now.
func (svc *Service) CheckLock(ctx context.Context, identityKey string) (models.LockState, error) {
	key, err := normalize(identityKey)
	if err != nil {
		return models.LockState{}, err
	}
	state, _, err := svc.evaluate(ctx, key, requesttime.Now(ctx))
	return state, err
}

// RecordAttempt appends one attempt. A success clears every row for the
// identity. A failure that reaches the threshold inside the window carries
// locked_until and the returned state is locked.
func (svc *Service) RecordAttempt(ctx context.Context, identityKey string, successful bool) (models.LockState, error) {
	key, err := normalize(identityKey)
	if err != nil {
		return models.LockState{}, err
	}
	now := requesttime.Now(ctx)

	if successful {
		removed, err := svc.store.DeleteByIdentity(ctx, key)
		if err != nil {
			return models.LockState{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login attempts")
		}
		if removed > 0 {
			svc.logger.InfoContext(ctx, "login_ledger_cleared",
				"key_digest", privacy.HashKey(key),
				"rows", removed,
			)
		}
		return models.Open(svc.config.MaxFailures), nil
	}

	state, failures, err := svc.evaluate(ctx, key, now)
	if err != nil {
		return models.LockState{}, err
	}
	if state.Locked {
		// an active lock is never extended by further attempts
		return state, nil
	}

	attempt := svc.newAttempt(ctx, key, now)
	failures++
	if failures >= svc.config.MaxFailures {
		until := now.Add(svc.config.LockoutDuration)
		attempt.LockedUntil = &until
	}
	if err := svc.store.Append(ctx, attempt); err != nil {
		return models.LockState{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login attempt")
	}

	if attempt.IsLockout() {
		svc.metrics.IncLockout()
		svc.logger.WarnContext(ctx, "auth_lockout_triggered",
			"log_type", "audit",
			"key_digest", privacy.HashKey(key),
			"locked_until", attempt.LockedUntil,
			"device", attempt.Device,
			"ip_prefix", attempt.IPPrefix,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.LockedUntil(*attempt.LockedUntil), nil
	}
	return models.Open(svc.config.MaxFailures - failures), nil
}

// evaluate derives the lock state. Failures from before an expired lock do
// not count again once the lock has elapsed.
func (svc *Service) evaluate(ctx context.Context, key string, now time.Time) (models.LockState, int, error) {
	until, err := svc.store.LatestLockUntil(ctx, key)
	if err != nil {
		return models.LockState{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lockout")
	}
	if until != nil && now.Before(*until) {
		return models.LockedUntil(*until), 0, nil
	}

	since := now.Add(-svc.config.Window)
	if until != nil && until.After(since) {
		since = *until
	}
	failures, err := svc.store.CountFailuresSince(ctx, key, since)
	if err != nil {
		return models.LockState{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count login failures")
	}
	return models.Open(svc.config.MaxFailures - failures), failures, nil
}

func (svc *Service) newAttempt(ctx context.Context, key string, now time.Time) *models.Attempt {
	return &models.Attempt{
		IdentityKey: key,
		At:          now,
		Device:      DeviceLabel(requestcontext.UserAgent(ctx)),
		IPPrefix:    privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
	}
}

// DeviceLabel reduces a User-Agent to "Browser on OS" for the ledger.
func DeviceLabel(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser == "" && os == "":
		return "unknown"
	case os == "":
		return browser
	case browser == "":
		return os
	}
	return browser + " on " + os
}

func normalize(identityKey string) (string, error) {
	key := s.NormalizeKey(identityKey)
	if key == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity key is required")
	}
	return key, nil
}
