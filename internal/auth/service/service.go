// Package service implements the gated password sign-in: lockout check,
// credential check, ledger record, then email and account status checks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lostfound/internal/auth/models"
	"lostfound/internal/identity"
	ledger "lostfound/internal/ledger/models"
	"lostfound/internal/platform/metrics"
	profile "lostfound/internal/profile/models"
	profilesvc "lostfound/internal/profile/service"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/platform/privacy"
	"lostfound/pkg/platform/tracer"
	"lostfound/pkg/requestcontext"
	s "lostfound/pkg/string"
)

// IdentityProvider is the subset of identity.Provider sign-in needs.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Ledger gates sign-in on recent failures.
type Ledger interface {
	CheckLock(ctx context.Context, identityKey string) (ledger.LockState, error)
	RecordAttempt(ctx context.Context, identityKey string, successful bool) (ledger.LockState, error)
}

// Profiles resolves the role and account status of a signed-in user.
type Profiles interface {
	Get(ctx context.Context, userID id.UserID) (*profile.Profile, error)
}

type Service struct {
	provider IdentityProvider
	ledger   Ledger
	profiles Profiles
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
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

func WithTracer(t tracer.Tracer) Option {
	return func(svc *Service) {
		if t != nil {
			svc.tracer = t
		}
	}
}

func New(provider IdentityProvider, ledger Ledger, profiles Profiles, opts ...Option) (*Service, error) {
	if provider == nil || ledger == nil || profiles == nil {
		return nil, fmt.Errorf("provider, ledger and profiles are required")
	}
	svc := &Service{
		provider: provider,
		ledger:   ledger,
		profiles: profiles,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignIn satisfies identity.Authenticator.
func (svc *Service) SignIn(ctx context.Context, identityKey, password string) (*identity.Session, error) {
	res, err := svc.Authenticate(ctx, identityKey, password)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

// Authenticate runs the full sign-in. The lock check happens before the
// provider sees the password, so a locked identity cannot probe credentials.
func (svc *Service) Authenticate(ctx context.Context, identityKey, password string) (res *models.SignInResult, err error) {
	key := s.NormalizeKey(identityKey)
	if key == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	digest := privacy.HashKey(key)

	ctx, span := svc.tracer.Start(ctx, tracer.SpanSignIn, tracer.String(tracer.AttrKeyDigest, digest))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
		span.End(err)
	}()
	return svc.authenticate(ctx, key, digest, password)
}

func (svc *Service) authenticate(ctx context.Context, key, digest, password string) (*models.SignInResult, error) {
	now := requesttime.Now(ctx)

	lock, err := svc.ledger.CheckLock(ctx, key)
	if err != nil {
		// fail closed: without the ledger we cannot tell a locked identity apart
		svc.logger.ErrorContext(ctx, "login ledger check failed", "error", err, "key_digest", digest)
		svc.metrics.IncSignIn("unavailable")
		return nil, &dErrors.Error{Code: dErrors.CodeProviderUnavailable, Message: "sign-in is temporarily unavailable", Err: err}
	}
	if lock.Locked && lock.UnlockAt != nil {
		svc.metrics.IncSignIn("locked")
		svc.logAudit(ctx, "sign_in_rejected_locked", "key_digest", digest, "unlock_at", *lock.UnlockAt)
		return nil, dErrors.Locked(*lock.UnlockAt, lock.Remedy(now))
	}

	sess, err := svc.provider.SignInWithPassword(ctx, key, password)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidCredential) {
			svc.logger.ErrorContext(ctx, "identity provider sign-in failed", "error", err, "key_digest", digest)
			svc.metrics.IncSignIn("unavailable")
			return nil, &dErrors.Error{Code: dErrors.CodeProviderUnavailable, Message: "sign-in is temporarily unavailable", Err: err}
		}
		return nil, svc.recordFailure(ctx, key, now)
	}

	if _, err := svc.ledger.RecordAttempt(ctx, key, true); err != nil {
		svc.ledgerWriteFailed(ctx, digest, err)
	}

	if !sess.EmailConfirmed {
		svc.revoke(ctx, sess)
		svc.metrics.IncSignIn("email_unverified")
		return nil, dErrors.WithRemedy(dErrors.CodeEmailUnverified,
			"email address has not been confirmed",
			"open the confirmation link we emailed you, then sign in again")
	}

	p, err := svc.profiles.Get(ctx, sess.UserID)
	if err != nil {
		svc.revoke(ctx, sess)
		svc.metrics.IncSignIn("profile_error")
		if dErrors.HasCode(err, dErrors.CodeProfileNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if !p.IsActive() {
		svc.revoke(ctx, sess)
		svc.metrics.IncSignIn("inactive")
		svc.logAudit(ctx, "sign_in_rejected_inactive", "user_id", sess.UserID.String())
		return nil, dErrors.WithRemedy(dErrors.CodeAccountInactive, "account is inactive", profilesvc.InactiveRemedy)
	}

	svc.metrics.IncSignIn("success")
	svc.logAudit(ctx, "sign_in_succeeded", "user_id", sess.UserID.String(), "role", string(p.Role))
	return &models.SignInResult{Session: sess, Profile: p}, nil
}

// SignOut revokes the caller's token. Repeating it is harmless.
func (svc *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := svc.provider.SignOut(ctx, accessToken); err != nil {
		return dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "sign-out failed")
	}
	if p, ok := requestcontext.PrincipalFrom(ctx); ok {
		svc.logAudit(ctx, "signed_out", "user_id", p.UserID.String())
	}
	return nil
}

// recordFailure appends the failed attempt. A ledger outage degrades to a
// plain InvalidCredential rather than blocking the response.
func (svc *Service) recordFailure(ctx context.Context, key string, now time.Time) error {
	digest := privacy.HashKey(key)
	state, err := svc.ledger.RecordAttempt(ctx, key, false)
	if err != nil {
		svc.ledgerWriteFailed(ctx, digest, err)
		svc.metrics.IncSignIn("invalid_credential")
		return dErrors.New(dErrors.CodeInvalidCredential, "invalid email or password")
	}
	if state.Locked && state.UnlockAt != nil {
		svc.metrics.IncSignIn("locked")
		return dErrors.Locked(*state.UnlockAt, state.Remedy(now))
	}
	svc.metrics.IncSignIn("invalid_credential")
	svc.logger.InfoContext(ctx, "sign_in_failed",
		"key_digest", digest,
		"remaining_attempts", state.Remaining(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeInvalidCredential, "invalid email or password")
}

func (svc *Service) ledgerWriteFailed(ctx context.Context, digest string, err error) {
	svc.metrics.IncLedgerWriteFailure()
	svc.logger.WarnContext(ctx, "login ledger write failed", "error", err, "key_digest", digest)
}

// revoke signs out a session that passed credentials but may not be used.
func (svc *Service) revoke(ctx context.Context, sess *identity.Session) {
	if err := svc.provider.SignOut(ctx, sess.AccessToken); err != nil {
		svc.logger.WarnContext(ctx, "failed to revoke rejected session", "error", err, "user_id", sess.UserID.String())
	}
}

func (svc *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	svc.logger.InfoContext(ctx, event, args...)
}
