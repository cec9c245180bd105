package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"lostfound/internal/ratelimit/models"
	"lostfound/internal/ratelimit/store/bucket"
	"lostfound/pkg/requestcontext"
	ids "lostfound/pkg/testutil"
)

type RateLimitMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestRateLimitMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(RateLimitMiddlewareSuite))
}

func (s *RateLimitMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.RateLimitResult, error) {
	return nil, errors.New("redis: connection refused")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func request(ip string, principal *requestcontext.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/claims", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, "test-agent")
	if principal != nil {
		ctx = requestcontext.WithPrincipal(ctx, *principal)
	}
	return req.WithContext(ctx)
}

func (s *RateLimitMiddlewareSuite) TestRateLimit() {
	limit := models.Limit{Requests: 2, Window: time.Minute}

	s.Run("third request from one ip is rejected with headers", func() {
		metrics := NewMetrics(prometheus.NewRegistry())
		mw := New(bucket.NewInMemoryBucketStore(), s.logger, WithLimit(models.ClassAuth, limit), WithMetrics(metrics))
		h := mw.RateLimit(models.ClassAuth)(okHandler())

		for range 2 {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, request("10.0.0.1", nil))
			s.Equal(http.StatusNoContent, rr.Code)
		}

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, request("10.0.0.1", nil))
		s.Equal(http.StatusTooManyRequests, rr.Code)
		s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
		s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))
		s.NotEmpty(rr.Header().Get("Retry-After"))
		s.Contains(rr.Body.String(), "rate_limit_exceeded")
		s.Equal(1.0, testutil.ToFloat64(metrics.Rejected.WithLabelValues("auth")))

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, request("10.0.0.2", nil))
		s.Equal(http.StatusNoContent, rr.Code, "other clients keep their own window")
	})

	s.Run("signed-in users are limited per account, not per ip", func() {
		mw := New(bucket.NewInMemoryBucketStore(), s.logger, WithLimit(models.ClassWrite, limit))
		h := mw.RateLimit(models.ClassWrite)(okHandler())
		claimant := ids.Finder(ids.TestIDs.ClaimantID)
		other := ids.Finder(ids.TestIDs.OtherID)

		for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, request(ip, &claimant))
			s.Equal(http.StatusNoContent, rr.Code)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, request("10.0.0.3", &claimant))
		s.Equal(http.StatusTooManyRequests, rr.Code)

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, request("10.0.0.1", &other))
		s.Equal(http.StatusNoContent, rr.Code)
	})

	s.Run("store failure lets the request through", func() {
		metrics := NewMetrics(prometheus.NewRegistry())
		h := New(failingStore{}, s.logger, WithMetrics(metrics)).RateLimit(models.ClassWrite)(okHandler())

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, request("10.0.0.1", nil))
		s.Equal(http.StatusNoContent, rr.Code)
		s.Empty(rr.Header().Get("X-RateLimit-Limit"))
		s.Equal(1.0, testutil.ToFloat64(metrics.Errors))
	})
}
