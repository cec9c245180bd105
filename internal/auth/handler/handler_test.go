package handler

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service,ProfileReader

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"lostfound/internal/auth/handler/mocks"
	"lostfound/internal/auth/models"
	"lostfound/internal/identity"
	profile "lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/httputil"
	"lostfound/pkg/requestcontext"
)

type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) newRouter(t *testing.T, principal *requestcontext.Principal) (*mocks.MockService, *mocks.MockProfileReader, *chi.Mux) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	profiles := mocks.NewMockProfileReader(ctrl)
	h := New(svc, profiles, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	if principal != nil {
		p := *principal
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(requestcontext.WithPrincipal(req.Context(), p)))
			})
		})
	}
	h.Register(r)
	h.RegisterAuthenticated(r)
	return svc, profiles, r
}

func (s *AuthHandlerSuite) TestSignIn() {
	s.T().Run("200 with role", func(t *testing.T) {
		svc, _, router := s.newRouter(t, nil)
		userID := id.NewUserID()
		svc.EXPECT().Authenticate(gomock.Any(), "finder@campus.edu", "pw").Return(&models.SignInResult{
			Session: &identity.Session{UserID: userID, Email: "finder@campus.edu", AccessToken: "tok"},
			Profile: &profile.Profile{UserID: userID, Role: profile.RoleFinder},
		}, nil)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
			strings.NewReader(`{"email":" Finder@Campus.edu ","password":"pw"}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		var got models.SignInResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "tok", got.AccessToken)
		assert.Equal(t, profile.RoleFinder, got.Role)
	})

	s.T().Run("400 when email is malformed", func(t *testing.T) {
		svc, _, router := s.newRouter(t, nil)
		svc.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
			strings.NewReader(`{"email":"nope","password":"pw"}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("423 carries unlock time and remedy", func(t *testing.T) {
		svc, _, router := s.newRouter(t, nil)
		unlock := time.Now().Add(4 * time.Minute)
		svc.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Locked(unlock, "try again in 4 minutes"))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
			strings.NewReader(`{"email":"finder@campus.edu","password":"pw"}`)))

		require.Equal(t, http.StatusLocked, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, string(dErrors.CodeAccountLocked), body.Error)
		assert.Equal(t, "try again in 4 minutes", body.Remedy)
		require.NotNil(t, body.UnlockAt)
	})

	s.T().Run("401 for bad credentials", func(t *testing.T) {
		svc, _, router := s.newRouter(t, nil)
		svc.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid email or password"))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
			strings.NewReader(`{"email":"finder@campus.edu","password":"pw"}`)))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func (s *AuthHandlerSuite) TestSignOut() {
	principal := &requestcontext.Principal{UserID: id.NewUserID(), Role: "finder"}
	svc, _, router := s.newRouter(s.T(), principal)
	svc.EXPECT().SignOut(gomock.Any(), "tok").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	s.Equal(http.StatusNoContent, rr.Code)
}

func (s *AuthHandlerSuite) TestSession() {
	s.T().Run("returns role and status", func(t *testing.T) {
		principal := &requestcontext.Principal{UserID: id.NewUserID(), Role: "admin"}
		_, profiles, router := s.newRouter(t, principal)
		profiles.EXPECT().Active(gomock.Any(), principal.UserID).Return(&profile.Profile{
			UserID: principal.UserID, Email: "staff@campus.edu", Role: profile.RoleAdmin, Status: profile.StatusActive,
		}, nil)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var got models.SessionResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, profile.RoleAdmin, got.Role)
	})

	s.T().Run("inactive account is forbidden", func(t *testing.T) {
		principal := &requestcontext.Principal{UserID: id.NewUserID(), Role: "finder"}
		_, profiles, router := s.newRouter(t, principal)
		profiles.EXPECT().Active(gomock.Any(), principal.UserID).
			Return(nil, dErrors.WithRemedy(dErrors.CodeAccountInactive, "inactive", "contact an administrator"))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	s.T().Run("missing principal is a wiring error", func(t *testing.T) {
		_, _, router := s.newRouter(t, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
