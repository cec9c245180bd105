// Package identity defines the port to the external identity provider and
// the per-origin client that shares one provider session across tabs.
package identity

import (
	"context"
	"time"

	id "lostfound/pkg/domain"
)

// Session is what the identity provider knows about a signed-in user.
// Role and account status live in the profile, not here.
type Session struct {
	UserID         id.UserID `json:"user_id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	AccessToken    string    `json:"access_token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// EventKind names a provider push event.
type EventKind string

const (
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
	EventUserUpdated      EventKind = "USER_UPDATED"
)

// Event is delivered to every subscriber of a Client.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is the external identity service. Implementations return
// CodeInvalidCredential for bad credentials and CodeProviderUnavailable
// (or a plain error) when the service cannot answer.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// GetUser resolves an access token. A revoked or expired token yields CodeUnauthorized.
	GetUser(ctx context.Context, accessToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
