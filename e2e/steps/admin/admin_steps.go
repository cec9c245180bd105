package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTAs(email, path string, body any) error
	GETAs(email, path string) error
	Saved(key string) string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers admin-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^"([^"]*)" requests the desk statistics$`, steps.getStats)
	ctx.Step(`^the statistics should count at least (\d+) "([^"]*)" items?$`, steps.statsShouldCount)
	ctx.Step(`^"([^"]*)" sets the account of "([^"]*)" to "([^"]*)"$`, steps.setAccountStatus)
	ctx.Step(`^"([^"]*)" reads the audit log$`, steps.readAuditLog)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) getStats(ctx context.Context, email string) error {
	return s.tc.GETAs(email, "/admin/stats")
}

func (s *adminSteps) statsShouldCount(ctx context.Context, want int, status string) error {
	var stats struct {
		Items map[string]int `json:"items"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}
	if got := stats.Items[status]; got < want {
		return fmt.Errorf("expected at least %d %s items, got %d", want, status, got)
	}
	return nil
}

func (s *adminSteps) setAccountStatus(ctx context.Context, adminEmail, targetEmail, status string) error {
	userID := s.tc.Saved("user:" + targetEmail)
	if userID == "" {
		return fmt.Errorf("%s has not signed in during this scenario", targetEmail)
	}
	return s.tc.POSTAs(adminEmail, "/admin/users/"+userID+"/status", map[string]string{"status": status})
}

func (s *adminSteps) readAuditLog(ctx context.Context, email string) error {
	return s.tc.GETAs(email, "/admin/audit")
}
