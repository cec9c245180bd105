// Package requestcontext carries request-scoped identity and correlation values.
package requestcontext

import (
	"context"

	id "lostfound/pkg/domain"
)

type (
	requestIDKey struct{}
	principalKey struct{}
	clientKey    struct{}
)

type clientMetadata struct {
	ip        string
	userAgent string
}

// Principal is the authenticated caller attached by the auth middleware.
type Principal struct {
	UserID id.UserID
	Role   string
}

// IsAdmin reports whether the principal carries the staff role.
func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller and whether one was attached.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID.IsNil() {
		return Principal{}, false
	}
	return p, true
}

// WithClientMetadata stores the caller's address and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientMetadata{ip: ip, userAgent: userAgent})
}

func ClientIP(ctx context.Context) string {
	if m, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return m.ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if m, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return m.userAgent
	}
	return ""
}
