package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"lostfound/internal/auth/models"
	profile "lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/requestcontext"
)

// Service is the sign-in surface the handler drives.
type Service interface {
	Authenticate(ctx context.Context, identityKey, password string) (*models.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ProfileReader returns the caller's profile for GET /auth/session.
type ProfileReader interface {
	Active(ctx context.Context, userID id.UserID) (*profile.Profile, error)
}

type Handler struct {
	auth     Service
	profiles ProfileReader
	logger   *slog.Logger
}

func New(auth Service, profiles ProfileReader, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, profiles: profiles, logger: logger}
}

// Register mounts the public routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/sign-in", h.HandleSignIn)
}

// RegisterAuthenticated mounts routes that need a bearer token.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/sign-out", h.HandleSignOut)
	r.Get("/auth/session", h.HandleSession)
}

// HandleSignIn implements POST /auth/sign-in.
//
// Input: { "email": "finder@campus.edu", "password": "..." }
// Output: { "access_token": "...", "expires_at": "...", "user_id": "...", "email": "...", "role": "finder" }
// A locked identity gets 423 with unlock_at, remedy and Retry-After.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SignInRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "sign in failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewSignInResponse(res))
}

// HandleSignOut implements POST /auth/sign-out. It always answers 204 once
// the token has been handed to the provider.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.auth.SignOut(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "sign out failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession implements GET /auth/session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.profiles.Active(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.SessionResponse{
		UserID:        p.UserID.String(),
		Email:         p.Email,
		Role:          p.Role,
		AccountStatus: p.Status,
	})
}
