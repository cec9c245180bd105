package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/requestcontext"
)

// Service is the item and claim workflow. Authorization by role happens in
// the service; the handler only passes the caller along.
type Service interface {
	ReportItem(ctx context.Context, reporter requestcontext.Principal, in models.NewItem) (*models.LostItem, error)
	ListItems(ctx context.Context, viewer requestcontext.Principal, status models.ItemStatus) ([]*models.LostItem, error)
	GetItem(ctx context.Context, viewer requestcontext.Principal, itemID id.ItemID) (*models.LostItem, error)
	VerifyItem(ctx context.Context, admin requestcontext.Principal, itemID id.ItemID, decision models.Decision) (*models.LostItem, error)
	SubmitClaim(ctx context.Context, claimant requestcontext.Principal, in models.NewClaim) (*models.Claim, error)
	DecideClaim(ctx context.Context, admin requestcontext.Principal, claimID id.ClaimID, decision models.Decision) (*models.Claim, error)
	LookupByCode(ctx context.Context, admin requestcontext.Principal, code string) (*models.Lookup, error)
	ListClaims(ctx context.Context, viewer requestcontext.Principal, filter models.ClaimFilter) ([]*models.Claim, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts routes open to any signed-in user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/items", h.HandleReportItem)
	r.Get("/items", h.HandleListItems)
	r.Get("/items/{id}", h.HandleGetItem)
	r.Post("/claims", h.HandleSubmitClaim)
	r.Get("/claims", h.HandleListClaims)
}

// RegisterAdmin mounts staff routes. The router wraps them in RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/items/{id}/verify", h.HandleVerifyItem)
	r.Post("/admin/claims/{id}/decision", h.HandleDecideClaim)
	r.Get("/admin/claims/by-code/{code}", h.HandleLookupByCode)
}

// HandleReportItem implements POST /items.
//
// Input: { "type": "backpack", "location": "Library", "found_at": "...", "security_questions": [{"question": "...", "answer": "..."}] }
// Output: 201 with the stored item, status "pending".
func (h *Handler) HandleReportItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReportItemRequest](w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.service.ReportItem(ctx, principal, req.NewItem)
	if err != nil {
		h.logFailure(ctx, "report item failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

// HandleListItems implements GET /items?status=verified.
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items, err := h.service.ListItems(ctx, principal, models.ItemStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.logFailure(ctx, "list items failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ItemListResponse{Items: nonNil(items)})
}

// HandleGetItem implements GET /items/{id}.
func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
		return
	}

	item, err := h.service.GetItem(ctx, principal, itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleVerifyItem implements POST /admin/items/{id}/verify.
//
// Input: { "approve": true }
// A second verify of the same item answers 409 with soft=true.
func (h *Handler) HandleVerifyItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.service.VerifyItem(ctx, principal, itemID, req.Decision())
	if err != nil {
		h.logFailure(ctx, "verify item failed", err, "item_id", itemID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleSubmitClaim implements POST /claims.
//
// Input: { "item_id": "...", "answers": ["navy blue"], "proof_photo_ref": "..." }
// Output: 201 with the claim and its LF- code.
func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitClaimRequest](w, r, h.logger)
	if !ok {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	claim, err := h.service.SubmitClaim(ctx, principal, cmd)
	if err != nil {
		h.logFailure(ctx, "submit claim failed", err, "item_id", cmd.ItemID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, claim)
}

// HandleListClaims implements GET /claims?item_id=&status=. Non-admins only
// ever see their own claims.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := models.ClaimFilter{Status: models.ClaimStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		if filter.ItemID, err = id.ParseItemID(raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
			return
		}
	}

	claims, err := h.service.ListClaims(ctx, principal, filter)
	if err != nil {
		h.logFailure(ctx, "list claims failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ClaimListResponse{Claims: nonNil(claims)})
}

// HandleDecideClaim implements POST /admin/claims/{id}/decision.
func (h *Handler) HandleDecideClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger)
	if !ok {
		return
	}

	claim, err := h.service.DecideClaim(ctx, principal, claimID, req.Decision())
	if err != nil {
		h.logFailure(ctx, "decide claim failed", err, "claim_id", claimID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

// HandleLookupByCode implements GET /admin/claims/by-code/{code}. The code is
// matched case-insensitively, with or without the LF- prefix.
func (h *Handler) HandleLookupByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	lookup, err := h.service.LookupByCode(ctx, principal, chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lookup)
}

// logFailure logs at warn for soft errors, which are expected user outcomes.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "request_id", requestcontext.RequestID(ctx))
	if dErrors.IsSoft(err) {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
