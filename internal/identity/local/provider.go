// Package local is an in-process identity provider: bcrypt password hashes,
// HS256 access tokens with jti revocation, and single-use email links for
// confirmation and password recovery.
package local

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lostfound/internal/identity"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/auth"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/platform/privacy"
	s "lostfound/pkg/string"
)

// LinkKind distinguishes the two emailed link flows.
type LinkKind string

const (
	LinkConfirmEmail LinkKind = "signup"
	LinkRecovery     LinkKind = "recovery"
)

// User is a provider account.
type User struct {
	ID             id.UserID
	Email          string
	PasswordHash   []byte
	EmailConfirmed bool
	CreatedAt      time.Time
}

type link struct {
	userID    id.UserID
	kind      LinkKind
	expiresAt time.Time
}

// Config holds token and link lifetimes.
type Config struct {
	Issuer     string
	TokenTTL   time.Duration
	LinkTTL    time.Duration
	BcryptCost int
}

func DefaultConfig() Config {
	return Config{
		Issuer:     "lostfound",
		TokenTTL:   time.Hour,
		LinkTTL:    time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Provider implements identity.Provider plus the bearer-token checks the
// auth middleware needs.
type Provider struct {
	tokens *TokenService
	config Config
	logger *slog.Logger

	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[id.UserID]*User
	links   map[string]link
	revoked map[string]time.Time
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(p *Provider) {
		if cfg.Issuer != "" {
			p.config.Issuer = cfg.Issuer
		}
		if cfg.TokenTTL > 0 {
			p.config.TokenTTL = cfg.TokenTTL
		}
		if cfg.LinkTTL > 0 {
			p.config.LinkTTL = cfg.LinkTTL
		}
		if cfg.BcryptCost > 0 {
			p.config.BcryptCost = cfg.BcryptCost
		}
	}
}

func New(signingKey string, opts ...Option) (*Provider, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	p := &Provider{
		config:  DefaultConfig(),
		logger:  slog.Default(),
		byEmail: make(map[string]*User),
		byID:    make(map[id.UserID]*User),
		links:   make(map[string]link),
		revoked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.tokens = NewTokenService(signingKey, p.config.Issuer, p.config.TokenTTL)
	return p, nil
}

// Register creates an unconfirmed account and returns the confirmation link token.
func (p *Provider) Register(ctx context.Context, email, password string) (*User, string, error) {
	key := s.NormalizeKey(email)
	if key == "" || password == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.config.BcryptCost)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[key]; exists {
		return nil, "", dErrors.New(dErrors.CodeConflict, "email already registered")
	}
	user := &User{
		ID:           id.NewUserID(),
		Email:        key,
		PasswordHash: hash,
		CreatedAt:    requesttime.Now(ctx),
	}
	p.byEmail[key] = user
	p.byID[user.ID] = user

	token, err := p.newLinkLocked(ctx, user.ID, LinkConfirmEmail)
	if err != nil {
		return nil, "", err
	}
	p.logger.InfoContext(ctx, "identity_registered", "user_id", user.ID.String(), "key_digest", privacy.HashKey(key))
	return user, token, nil
}

// ConfirmEmail redeems a confirmation link and signs the user in.
func (p *Provider) ConfirmEmail(ctx context.Context, token string) (*identity.Session, error) {
	user, err := p.redeem(ctx, token, LinkConfirmEmail)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	user.EmailConfirmed = true
	p.mu.Unlock()
	return p.issue(ctx, user)
}

// RequestRecovery returns a recovery link token. Unknown emails get "", nil
// so callers cannot probe which addresses exist.
func (p *Provider) RequestRecovery(ctx context.Context, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byEmail[s.NormalizeKey(email)]
	if !ok {
		return "", nil
	}
	return p.newLinkLocked(ctx, user.ID, LinkRecovery)
}

// VerifyRecovery redeems a recovery link and returns a session the holder
// can use to set a new password.
func (p *Provider) VerifyRecovery(ctx context.Context, token string) (*identity.Session, error) {
	user, err := p.redeem(ctx, token, LinkRecovery)
	if err != nil {
		return nil, err
	}
	return p.issue(ctx, user)
}

// UpdatePassword replaces the password of the token's owner.
func (p *Provider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if newPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	sess, err := p.GetUser(ctx, accessToken)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.config.BcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[sess.UserID]
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "unknown user")
	}
	user.PasswordHash = hash
	return nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	p.mu.RLock()
	user, ok := p.byEmail[s.NormalizeKey(email)]
	p.mu.RUnlock()
	if !ok {
		// burn comparable time so unknown emails are not distinguishable by latency
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid email or password")
	}
	return p.issue(ctx, user)
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (*identity.Session, error) {
	claims, err := p.tokens.ValidateAt(accessToken, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if revoked, _ := p.IsTokenRevoked(ctx, claims.ID); revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token revoked")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	p.mu.RLock()
	user, ok := p.byID[userID]
	var confirmed bool
	if ok {
		confirmed = user.EmailConfirmed
	}
	p.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown user")
	}
	return &identity.Session{
		UserID:         userID,
		Email:          claims.Email,
		EmailConfirmed: confirmed,
		AccessToken:    accessToken,
		ExpiresAt:      claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the token's jti until its natural expiry. Invalid tokens
// are ignored so sign-out is always safe to repeat.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	now := requesttime.Now(ctx)
	claims, err := p.tokens.ValidateAt(accessToken, now)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for jti, exp := range p.revoked {
		if !now.Before(exp) {
			delete(p.revoked, jti)
		}
	}
	p.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

// ValidateToken adapts token validation to the auth middleware.
func (p *Provider) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := p.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{UserID: claims.UserID, JTI: claims.ID}, nil
}

func (p *Provider) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.revoked[jti]
	return ok, nil
}

// RegisterConfirmed creates an account that is already confirmed. Used by the seeder.
func (p *Provider) RegisterConfirmed(ctx context.Context, email, password string) (*User, error) {
	user, _, err := p.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	user.EmailConfirmed = true
	p.mu.Unlock()
	return user, nil
}

func (p *Provider) issue(ctx context.Context, user *User) (*identity.Session, error) {
	p.mu.RLock()
	email, confirmed := user.Email, user.EmailConfirmed
	p.mu.RUnlock()

	token, _, expiresAt, err := p.tokens.Issue(ctx, user.ID, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &identity.Session{
		UserID:         user.ID,
		Email:          email,
		EmailConfirmed: confirmed,
		AccessToken:    token,
		ExpiresAt:      expiresAt,
	}, nil
}

func (p *Provider) newLinkLocked(ctx context.Context, userID id.UserID, kind LinkKind) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate link token")
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	p.links[token] = link{
		userID:    userID,
		kind:      kind,
		expiresAt: requesttime.Now(ctx).Add(p.config.LinkTTL),
	}
	return token, nil
}

// redeem consumes a link token. Links are single use even when expired.
func (p *Provider) redeem(ctx context.Context, token string, kind LinkKind) (*User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.links[token]
	if !ok || l.kind != kind {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or used link")
	}
	delete(p.links, token)
	if !requesttime.Now(ctx).Before(l.expiresAt) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "link expired")
	}
	user, ok := p.byID[l.userID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown user")
	}
	return user, nil
}

// dummyHash is compared against when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("lostfound-timing-pad"), bcrypt.MinCost)

var _ identity.Provider = (*Provider)(nil)
