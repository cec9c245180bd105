package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"lostfound/internal/ratelimit/models"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/platform/privacy"
	"lostfound/pkg/requestcontext"
)

// BucketStore is satisfied by the in-memory and redis sliding window stores.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

type Middleware struct {
	store   BucketStore
	limits  map[models.EndpointClass]models.Limit
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Middleware)

// WithLimit overrides the default allowance for one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.Requests > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limits: models.DefaultLimits(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit enforces the class allowance per signed-in user, or per client IP
// before sign-in. Store failures fail open.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	limit, ok := m.limits[class]
	if !ok {
		limit = models.DefaultLimits()[models.ClassWrite]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			principal, _ := requestcontext.PrincipalFrom(ctx)

			result, err := m.store.Allow(ctx, models.Key(class, principal.UserID, ip), limit)
			if err != nil {
				m.metrics.IncError()
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", class,
					"ip_prefix", privacy.AnonymizeIP(ip),
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncRejected(class)
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"ip_prefix", privacy.AnonymizeIP(ip),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(max(result.RetryAfter, 1)))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &httputil.ErrorResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "Too many requests. Please slow down.",
		Remedy:           "Try again in " + strconv.Itoa(max(result.RetryAfter, 1)) + " seconds.",
	})
}
