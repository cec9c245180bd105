package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/requestcontext"
)

const testUserID = "550e8400-e29b-41d4-a716-446655440001"

type MockJWTValidator struct{ mock.Mock }

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRevocationChecker struct{ mock.Mock }

func (m *MockRevocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

type MockRoleResolver struct{ mock.Mock }

func (m *MockRoleResolver) ResolveRole(ctx context.Context, userID id.UserID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	validator *MockJWTValidator
	revoker   *MockRevocationChecker
	roles     *MockRoleResolver
	principal requestcontext.Principal
	called    bool
	handler   http.Handler
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.revoker = new(MockRevocationChecker)
	s.roles = new(MockRoleResolver)
	s.called = false
	s.principal = requestcontext.Principal{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.principal, _ = requestcontext.PrincipalFrom(r.Context())
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = RequireAuth(s.validator, s.revoker, s.roles, logger)(next)
}

func (s *AuthMiddlewareSuite) serve(authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareSuite) TestValidToken() {
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{UserID: testUserID, JTI: "j1"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "j1").Return(false, nil)
	s.roles.On("ResolveRole", mock.Anything, mock.Anything).Return("admin", nil)

	w := s.serve("Bearer good")

	s.Equal(http.StatusOK, w.Code)
	s.Require().True(s.called)
	s.Equal(testUserID, s.principal.UserID.String())
	s.True(s.principal.IsAdmin())
}

func (s *AuthMiddlewareSuite) TestMissingHeader() {
	w := s.serve("")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.called)
}

func (s *AuthMiddlewareSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "bad").Return(nil, errors.New("expired"))
	w := s.serve("Bearer bad")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.called)
}

func (s *AuthMiddlewareSuite) TestRevokedToken() {
	s.validator.On("ValidateToken", "old").Return(&JWTClaims{UserID: testUserID, JTI: "j2"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "j2").Return(true, nil)

	w := s.serve("Bearer old")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.called)
}

func (s *AuthMiddlewareSuite) TestRevocationStoreDown() {
	s.validator.On("ValidateToken", "tok").Return(&JWTClaims{UserID: testUserID, JTI: "j3"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "j3").Return(false, errors.New("redis down"))

	w := s.serve("Bearer tok")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.False(s.called)
}

func (s *AuthMiddlewareSuite) TestDeactivatedAccountIsRejected() {
	s.validator.On("ValidateToken", "tok").Return(&JWTClaims{UserID: testUserID, JTI: "j4"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "j4").Return(false, nil)
	s.roles.On("ResolveRole", mock.Anything, mock.Anything).
		Return("", dErrors.WithRemedy(dErrors.CodeAccountInactive, "account deactivated", "contact an administrator"))

	w := s.serve("Bearer tok")
	s.Equal(http.StatusForbidden, w.Code)
	s.Contains(w.Body.String(), "contact an administrator")
	s.False(s.called)
}
