// Package health serves liveness, readiness and status probes for the desk API.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"lostfound/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc checks one dependency and returns nil when it is healthy.
type CheckFunc func(ctx context.Context) error

const checkTimeout = 2 * time.Second

type check struct {
	fn CheckFunc
	// optional dependencies (the activity stream) degrade the service
	// instead of taking it out of rotation
	optional bool
}

// Handler provides health check endpoints.
type Handler struct {
	startTime   time.Time
	environment string

	mu       sync.RWMutex
	checks   map[string]check
	backends map[string]string
}

// New creates a new health handler.
func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		checks:      make(map[string]check),
		backends:    make(map[string]string),
	}
}

// RegisterCheck adds a dependency the service cannot run without.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn})
}

// RegisterOptional adds a dependency whose failure only degrades the service.
func (h *Handler) RegisterOptional(name string, fn CheckFunc) {
	h.register(name, check{fn: fn, optional: true})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// SetBackend records which implementation serves a concern, e.g.
// storage=postgres or coordination=process, for the status probe.
func (h *Handler) SetBackend(concern, backend string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backends[concern] = backend
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always returns 200 while the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse status is ready, degraded (an optional check failed) or
// not_ready (a required check failed).
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness probes every dependency concurrently. Only required
// dependencies turn the answer into a 503.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	var (
		mu       sync.Mutex
		results  = make(map[string]string, len(checks))
		failed   bool
		degraded bool
	)
	g, ctx := errgroup.WithContext(r.Context())
	for name, c := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			err := c.fn(cctx)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[name] = "up"
			case c.optional:
				results[name] = "degraded: " + err.Error()
				degraded = true
			default:
				results[name] = "down: " + err.Error()
				failed = true
			}
			// never cancel siblings; every dependency gets reported
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: results}
	switch {
	case failed:
		resp.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	case degraded:
		resp.Status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type StatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	Backends      map[string]string `json:"backends,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
}

// HandleStatus reports version, uptime and which backends are in use.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	backends := maps.Clone(h.backends)
	h.mu.RUnlock()

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		Backends:      backends,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
