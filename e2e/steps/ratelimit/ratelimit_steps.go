package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I make (\d+) sign-in requests$`, steps.makeNSignInRequests)
	ctx.Step(`^at least one request should be rejected with status (\d+)$`, steps.someRequestRejectedWith)
	ctx.Step(`^the rejection should carry a Retry-After header$`, steps.rejectionHasRetryAfter)
}

type ratelimitSteps struct {
	tc TestContext
	// State for tracking across steps
	requestResults []int
	retryAfter     string
}

// makeNSignInRequests sends N sign-ins with a wrong password from this client.
// Each uses a distinct email so the per-identity lockout does not interfere.
func (s *ratelimitSteps) makeNSignInRequests(ctx context.Context, count int) error {
	s.requestResults = make([]int, 0, count)
	for i := range count {
		body := map[string]string{
			"email":    fmt.Sprintf("ratelimit-%d@campus.edu", i),
			"password": "wrong",
		}
		if err := s.tc.POST("/auth/sign-in", body); err != nil {
			return err
		}
		status := s.tc.GetLastResponseStatus()
		s.requestResults = append(s.requestResults, status)
		if status == 429 && s.retryAfter == "" {
			s.retryAfter = s.tc.GetLastResponseHeader("Retry-After")
		}
	}
	return nil
}

func (s *ratelimitSteps) someRequestRejectedWith(ctx context.Context, expectedStatus int) error {
	for _, status := range s.requestResults {
		if status == expectedStatus {
			return nil
		}
	}
	return fmt.Errorf("no request returned %d: %v", expectedStatus, s.requestResults)
}

func (s *ratelimitSteps) rejectionHasRetryAfter(ctx context.Context) error {
	secs, err := strconv.Atoi(s.retryAfter)
	if err != nil || secs <= 0 {
		return fmt.Errorf("expected a positive Retry-After, got %q", s.retryAfter)
	}
	return nil
}
