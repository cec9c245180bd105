// Package requesttime pins one "now" per request. Ledger writes, status
// transitions and activity records produced while serving a request all
// carry the same timestamp.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

// Precision matches Postgres timestamptz so a value written and read back
// compares equal to the one handed out here.
const Precision = time.Microsecond

type contextKeyRequestTime struct{}

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return NewMiddleware(time.Now)(next)
}

// NewMiddleware is Middleware with an injectable clock.
func NewMiddleware(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithTime(r.Context(), normalize(clock()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Now retrieves the request-scoped time from context.
// Outside HTTP (workers, tab orchestrators) it falls back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return normalize(time.Now())
}

// WithTime pins "now" for everything downstream of ctx. t is used as given.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}
