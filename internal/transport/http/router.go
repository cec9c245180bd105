package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activityhandler "lostfound/internal/activity/handler"
	"lostfound/internal/admin"
	authhandler "lostfound/internal/auth/handler"
	"lostfound/internal/platform/health"
	"lostfound/internal/ratelimit/models"
	ratelimit "lostfound/internal/ratelimit/middleware"
	workflowhandler "lostfound/internal/workflow/handler"
	adminmw "lostfound/pkg/platform/middleware/admin"
	"lostfound/pkg/platform/middleware/auth"
	"lostfound/pkg/platform/middleware/metadata"
	"lostfound/pkg/platform/middleware/request"
	"lostfound/pkg/platform/middleware/requesttime"
)

const maxBodyBytes = 1 << 20

// Handlers groups the module handlers mounted by the router.
type Handlers struct {
	Health   *health.Handler
	Auth     *authhandler.Handler
	Workflow *workflowhandler.Handler
	Activity *activityhandler.Handler
	Admin    *admin.Handler
}

// Security carries bearer-token resolution and per-client limits.
// Limiter is optional.
type Security struct {
	Tokens         auth.JWTValidator
	Revocation     auth.TokenRevocationChecker
	Roles          auth.RoleResolver
	TrustedProxies []netip.Prefix
	Limiter        *ratelimit.Middleware
}

// NewRouter wires every endpoint with the shared middleware stack.
// Public routes sit at the top; everything else needs a bearer token, and
// /admin routes additionally need the admin role.
func NewRouter(h Handlers, sec Security, metrics *request.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.New(sec.TrustedProxies...).Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	if metrics != nil {
		r.Use(request.LatencyMiddleware(metrics))
	}
	r.Use(request.BodyLimit(maxBodyBytes))

	h.Health.Register(r)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(limitWrites(sec.Limiter, models.ClassAuth))
		h.Auth.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(sec.Tokens, sec.Revocation, sec.Roles, logger))
		r.Use(limitWrites(sec.Limiter, models.ClassWrite))

		h.Auth.RegisterAuthenticated(r)
		h.Workflow.Register(r)
		h.Activity.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(logger))
			h.Workflow.RegisterAdmin(r)
			h.Activity.RegisterAdmin(r)
			h.Admin.Register(r)
		})
	})

	return r
}

// limitWrites applies the class limit to mutating requests only; reads stay unthrottled.
func limitWrites(limiter *ratelimit.Middleware, class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		limited := limiter.RateLimit(class)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
