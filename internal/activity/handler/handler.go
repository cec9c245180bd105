package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lostfound/internal/activity/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/requestcontext"
)

type Service interface {
	Notifications(ctx context.Context, userID id.UserID) ([]*models.Record, error)
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	Ack(ctx context.Context, userID id.UserID) (int, error)
	AuditLog(ctx context.Context, filter models.AuditFilter) ([]*models.Record, error)
	Clear(ctx context.Context, scope models.ClearScope, caller requestcontext.Principal) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleNotifications)
	r.Get("/notifications/unread", h.HandleUnreadCount)
	r.Post("/notifications/ack", h.HandleAck)
	r.Post("/activity/clear", h.HandleClear)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit", h.HandleAuditLog)
}

// HandleNotifications implements GET /notifications, newest first.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recs, err := h.service.Notifications(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load notifications failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	resp := &NotificationsResponse{Notifications: make([]*models.Record, 0, len(recs))}
	for _, rec := range recs {
		resp.Notifications = append(resp.Notifications, rec)
		if rec.Unread() {
			resp.Unread++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleUnreadCount implements GET /notifications/unread for the badge.
func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.UnreadCount(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &UnreadResponse{Unread: n})
}

func (h *Handler) HandleAck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.Ack(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "ack notifications failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AckResponse{Acknowledged: n})
}

// HandleClear implements POST /activity/clear.
//
// Input: { "scope": "user" } hides the caller's feed; "admin" hides the audit
// log and answers 403 for non-admins.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClearRequest](w, r, h.logger)
	if !ok {
		return
	}

	n, err := h.service.Clear(ctx, models.ClearScope(req.Scope), principal)
	if err != nil {
		h.logger.WarnContext(ctx, "clear activity failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ClearResponse{Cleared: n})
}

// HandleAuditLog implements GET /admin/audit?kind=&audience=&actor_id=&item_id=&since=&until=&limit=.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recs, err := h.service.AuditLog(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "load audit log failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []*models.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, &AuditLogResponse{Records: recs})
}
