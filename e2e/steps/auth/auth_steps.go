package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// DemoPassword matches the password the development seeder gives every account.
const DemoPassword = "lostfound-demo"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTAs(email, path string, body any) error
	GETAs(email, path string) error
	GetResponseField(field string) (any, error)
	GetAccessTokenFor(email string) string
	SetAccessTokenFor(email, token string)
	Save(key, value string)
	Saved(key string) string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I sign in as "([^"]*)"$`, steps.signInAs)
	ctx.Step(`^I sign in as "([^"]*)" with password "([^"]*)"$`, steps.signInWithPassword)
	ctx.Step(`^"([^"]*)" is signed in$`, steps.isSignedIn)
	ctx.Step(`^"([^"]*)" signs out$`, steps.signOut)
	ctx.Step(`^"([^"]*)" checks the session$`, steps.checkSession)

	// Lockout uses a fresh identity per scenario so seeded accounts stay usable.
	ctx.Step(`^a fresh identity$`, steps.freshIdentity)
	ctx.Step(`^I fail to sign in (\d+) times with the fresh identity$`, steps.failFreshIdentity)
	ctx.Step(`^I sign in with the fresh identity$`, steps.signInFreshIdentity)
	ctx.Step(`^the response should indicate lockout$`, steps.responseShouldIndicateLockout)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) signInAs(ctx context.Context, email string) error {
	return s.signInWithPassword(ctx, email, DemoPassword)
}

func (s *authSteps) signInWithPassword(ctx context.Context, email, password string) error {
	if err := s.tc.POST("/auth/sign-in", map[string]string{"email": email, "password": password}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetAccessTokenFor(email, token.(string))
	if userID, err := s.tc.GetResponseField("user_id"); err == nil {
		s.tc.Save("user:"+email, fmt.Sprint(userID))
	}
	return nil
}

func (s *authSteps) isSignedIn(ctx context.Context, email string) error {
	if err := s.signInAs(ctx, email); err != nil {
		return err
	}
	if s.tc.GetAccessTokenFor(email) == "" {
		return fmt.Errorf("sign-in for %s failed with %d: %s", email, s.tc.GetLastResponseStatus(), string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *authSteps) signOut(ctx context.Context, email string) error {
	return s.tc.POSTAs(email, "/auth/sign-out", map[string]any{})
}

func (s *authSteps) checkSession(ctx context.Context, email string) error {
	return s.tc.GETAs(email, "/auth/session")
}

func (s *authSteps) freshIdentity(ctx context.Context) error {
	s.tc.Save("identity", fmt.Sprintf("e2e-%s@campus.edu", uuid.NewString()[:8]))
	return nil
}

func (s *authSteps) failFreshIdentity(ctx context.Context, times int) error {
	email := s.tc.Saved("identity")
	for i := range times {
		if err := s.signInWithPassword(ctx, email, "definitely-wrong"); err != nil {
			return err
		}
		status := s.tc.GetLastResponseStatus()
		if status != 401 && status != 423 {
			return fmt.Errorf("attempt %d: expected 401 or 423 but got %d", i+1, status)
		}
	}
	return nil
}

func (s *authSteps) signInFreshIdentity(ctx context.Context) error {
	return s.signInWithPassword(ctx, s.tc.Saved("identity"), DemoPassword)
}

func (s *authSteps) responseShouldIndicateLockout(ctx context.Context) error {
	var body struct {
		Error    string     `json:"error"`
		Remedy   string     `json:"remedy"`
		UnlockAt *time.Time `json:"unlock_at"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if body.UnlockAt == nil || !body.UnlockAt.After(time.Now().Add(-time.Minute)) {
		return fmt.Errorf("expected unlock_at in the future, got %v", body.UnlockAt)
	}
	if body.Remedy == "" {
		return fmt.Errorf("expected a remedy telling the user when to retry")
	}
	return nil
}
