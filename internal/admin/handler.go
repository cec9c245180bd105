package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	profile "lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/requestcontext"
	"lostfound/pkg/validation"
)

type AdminService interface {
	GetStats(ctx context.Context) (*Stats, error)
	SetAccountStatus(ctx context.Context, admin requestcontext.Principal, userID id.UserID, status profile.AccountStatus) (*profile.Profile, error)
}

// Handler handles admin monitoring and account endpoints
type Handler struct {
	service AdminService
	logger  *slog.Logger
}

// New creates a new admin handler
func New(service AdminService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers admin routes with the router. Callers wrap them in RequireAdmin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/stats", h.HandleGetStats)
	r.Post("/admin/users/{id}/status", h.HandleSetAccountStatus)
}

// HandleGetStats returns item counts per status and the pending claim backlog.
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.GetStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get stats",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (r *SetStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// HandleSetAccountStatus implements POST /admin/users/{id}/status.
//
// Input: { "status": "inactive" }
// Output: the updated profile. The user's next request is refused once inactive.
func (h *Handler) HandleSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger)
	if !ok {
		return
	}

	p, err := h.service.SetAccountStatus(ctx, principal, userID, profile.AccountStatus(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "set account status failed",
			"error", err,
			"user_id", userID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account status changed",
		"event", "account_status_changed",
		"log_type", "audit",
		"user_id", userID.String(),
		"actor_id", principal.UserID.String(),
		"account_status", string(p.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, p)
}
