package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	activityhandler "lostfound/internal/activity/handler"
	activityservice "lostfound/internal/activity/service"
	activitystore "lostfound/internal/activity/store"
	"lostfound/internal/admin"
	authhandler "lostfound/internal/auth/handler"
	authservice "lostfound/internal/auth/service"
	"lostfound/internal/identity/local"
	ledgerservice "lostfound/internal/ledger/service"
	ledgerstore "lostfound/internal/ledger/store"
	"lostfound/internal/platform/health"
	profile "lostfound/internal/profile/models"
	profileservice "lostfound/internal/profile/service"
	profilestore "lostfound/internal/profile/store"
	ratelimit "lostfound/internal/ratelimit/middleware"
	rlmodels "lostfound/internal/ratelimit/models"
	"lostfound/internal/ratelimit/store/bucket"
	httptransport "lostfound/internal/transport/http"
	"lostfound/internal/workflow/guard"
	workflowhandler "lostfound/internal/workflow/handler"
	workflowservice "lostfound/internal/workflow/service"
	workflowstore "lostfound/internal/workflow/store"
	"lostfound/pkg/platform/httputil"
)

const password = "correct horse battery"

// stack is an in-memory server wired the same way cmd/server wires it.
type stack struct {
	router   http.Handler
	provider *local.Provider
	profiles *profileservice.Service
}

func newStack(t *testing.T, limits map[rlmodels.EndpointClass]rlmodels.Limit) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := local.New("integration-secret",
		local.WithLogger(logger),
		local.WithConfig(local.Config{BcryptCost: bcrypt.MinCost}),
	)
	require.NoError(t, err)
	profiles, err := profileservice.New(profilestore.NewInMemory(), profileservice.WithLogger(logger))
	require.NoError(t, err)
	ledger, err := ledgerservice.New(ledgerstore.NewInMemory(), ledgerservice.WithLogger(logger))
	require.NoError(t, err)
	authSvc, err := authservice.New(provider, ledger, profiles, authservice.WithLogger(logger))
	require.NoError(t, err)
	activitySvc, err := activityservice.New(activitystore.NewInMemory(), activityservice.WithLogger(logger))
	require.NoError(t, err)

	items := workflowstore.NewInMemory()
	workflowSvc, err := workflowservice.New(items, activitySvc,
		workflowservice.WithLogger(logger),
		workflowservice.WithTx(workflowservice.NewShardedTx(items, nil)),
		workflowservice.WithGuard(guard.NewInMemory(2*time.Second)),
	)
	require.NoError(t, err)

	limiterOpts := []ratelimit.Option{}
	for class, l := range limits {
		limiterOpts = append(limiterOpts, ratelimit.WithLimit(class, l))
	}

	router := httptransport.NewRouter(
		httptransport.Handlers{
			Health:   health.New("test"),
			Auth:     authhandler.New(authSvc, profiles, logger),
			Workflow: workflowhandler.New(workflowSvc, logger),
			Activity: activityhandler.New(activitySvc, logger),
			Admin:    admin.New(admin.NewService(items, profiles, activitySvc, logger), logger),
		},
		httptransport.Security{
			Tokens:     provider,
			Revocation: provider,
			Roles:      profiles,
			Limiter:    ratelimit.New(bucket.NewInMemoryBucketStore(), logger, limiterOpts...),
		},
		nil, nil, logger,
	)
	return &stack{router: router, provider: provider, profiles: profiles}
}

func (st *stack) addUser(t *testing.T, email string, role profile.Role) {
	t.Helper()
	ctx := context.Background()
	acct, err := st.provider.RegisterConfirmed(ctx, email, password)
	require.NoError(t, err)
	_, err = st.profiles.Create(ctx, acct.ID, email, email, role)
	require.NoError(t, err)
}

func (st *stack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	st.router.ServeHTTP(rec, req)
	return rec
}

func (st *stack) signIn(t *testing.T, email string) string {
	t.Helper()
	rec := st.do(t, http.MethodPost, "/auth/sign-in", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var res httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

type WorkflowIntegrationSuite struct {
	suite.Suite
	st *stack
}

func TestWorkflowIntegrationSuite(t *testing.T) {
	suite.Run(t, new(WorkflowIntegrationSuite))
}

func (s *WorkflowIntegrationSuite) SetupTest() {
	s.st = newStack(s.T(), nil)
	s.st.addUser(s.T(), "desk@campus.edu", profile.RoleAdmin)
	s.st.addUser(s.T(), "reporter@campus.edu", profile.RoleFinder)
	s.st.addUser(s.T(), "claimant@campus.edu", profile.RoleFinder)
}

func (s *WorkflowIntegrationSuite) TestReportVerifyClaimApprove() {
	t := s.T()
	adminToken := s.st.signIn(t, "desk@campus.edu")
	reporterToken := s.st.signIn(t, "reporter@campus.edu")
	claimantToken := s.st.signIn(t, "claimant@campus.edu")

	rec := s.st.do(t, http.MethodPost, "/items", reporterToken, map[string]any{
		"type":     "umbrella",
		"location": "Library, 2nd floor",
		"found_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"security_questions": []map[string]string{
			{"question": "What brand is printed on the strap?", "answer": "Totes"},
		},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var item struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &item))
	s.Equal("pending", item.Status)

	s.Run("pending items cannot be claimed", func() {
		rec := s.st.do(t, http.MethodPost, "/claims", claimantToken, map[string]any{
			"item_id": item.ID, "answers": []string{"Totes"},
		})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	rec = s.st.do(t, http.MethodPost, "/admin/items/"+item.ID+"/verify", adminToken, map[string]bool{"approve": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.Run("a second verify is a soft conflict", func() {
		rec := s.st.do(t, http.MethodPost, "/admin/items/"+item.ID+"/verify", adminToken, map[string]bool{"approve": true})
		s.Equal(http.StatusConflict, rec.Code)
		s.True(decodeError(t, rec).Soft)
	})

	s.Run("reporters cannot claim their own item", func() {
		rec := s.st.do(t, http.MethodPost, "/claims", reporterToken, map[string]any{
			"item_id": item.ID, "answers": []string{"Totes"},
		})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	rec = s.st.do(t, http.MethodPost, "/claims", claimantToken, map[string]any{
		"item_id": item.ID, "answers": []string{"totes"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var claim struct {
		ID     string `json:"id"`
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &claim))
	s.Equal("pending", claim.Status)
	s.NotEmpty(claim.Code)

	s.Run("a second pending claim is rejected", func() {
		rec := s.st.do(t, http.MethodPost, "/claims", claimantToken, map[string]any{
			"item_id": item.ID, "answers": []string{"Totes"},
		})
		s.Equal(http.StatusConflict, rec.Code)
		s.True(decodeError(t, rec).Soft)
	})

	s.Run("the desk finds the claim by code", func() {
		rec := s.st.do(t, http.MethodGet, "/admin/claims/by-code/"+claim.Code, adminToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var lookup struct {
			MatchingAnswers int `json:"matching_answers"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &lookup))
		s.Equal(1, lookup.MatchingAnswers)
	})

	rec = s.st.do(t, http.MethodPost, "/admin/claims/"+claim.ID+"/decision", adminToken, map[string]bool{"approve": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.st.do(t, http.MethodGet, "/items/"+item.ID, reporterToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &item))
	s.Equal("claimed", item.Status)

	rec = s.st.do(t, http.MethodGet, "/notifications/unread", claimantToken, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *WorkflowIntegrationSuite) TestAdminRoutesNeedAdminRole() {
	token := s.st.signIn(s.T(), "reporter@campus.edu")

	rec := s.st.do(s.T(), http.MethodGet, "/admin/stats", token, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.st.do(s.T(), http.MethodGet, "/admin/stats", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *WorkflowIntegrationSuite) TestSignedOutTokenIsRejected() {
	token := s.st.signIn(s.T(), "claimant@campus.edu")

	rec := s.st.do(s.T(), http.MethodPost, "/auth/sign-out", token, nil)
	s.Require().Less(rec.Code, 300, rec.Body.String())

	rec = s.st.do(s.T(), http.MethodGet, "/auth/session", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *WorkflowIntegrationSuite) TestLockoutAfterRepeatedFailures() {
	for range 5 {
		rec := s.st.do(s.T(), http.MethodPost, "/auth/sign-in", "", map[string]string{
			"email": "claimant@campus.edu", "password": "wrong",
		})
		s.Contains([]int{http.StatusUnauthorized, http.StatusLocked}, rec.Code)
	}

	rec := s.st.do(s.T(), http.MethodPost, "/auth/sign-in", "", map[string]string{
		"email": "claimant@campus.edu", "password": password,
	})
	s.Require().Equal(http.StatusLocked, rec.Code, rec.Body.String())
	res := decodeError(s.T(), rec)
	s.NotNil(res.UnlockAt)
	s.NotEmpty(res.Remedy)

	// other identities are unaffected
	s.st.signIn(s.T(), "reporter@campus.edu")
}

func TestSignInRateLimit(t *testing.T) {
	st := newStack(t, map[rlmodels.EndpointClass]rlmodels.Limit{
		rlmodels.ClassAuth: {Requests: 2, Window: time.Minute},
	})
	st.addUser(t, "finder@campus.edu", profile.RoleFinder)

	for range 2 {
		st.signIn(t, "finder@campus.edu")
	}
	rec := st.do(t, http.MethodPost, "/auth/sign-in", "", map[string]string{
		"email": "finder@campus.edu", "password": password,
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
