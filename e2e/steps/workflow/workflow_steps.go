package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTAs(email, path string, body any) error
	GETAs(email, path string) error
	GetResponseField(field string) (any, error)
	Save(key, value string)
	Saved(key string) string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers item and claim step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &workflowSteps{tc: tc}

	// Items
	ctx.Step(`^"([^"]*)" reports a found "([^"]*)" at "([^"]*)" answering "([^"]*)"$`, steps.reportItem)
	ctx.Step(`^I save the item ID from the response$`, steps.saveItemID)
	ctx.Step(`^"([^"]*)" (approves|rejects) the item$`, steps.verifyItem)
	ctx.Step(`^"([^"]*)" views the item$`, steps.viewItem)

	// Claims
	ctx.Step(`^"([^"]*)" claims the item answering "([^"]*)"$`, steps.claimItem)
	ctx.Step(`^I save the claim from the response$`, steps.saveClaim)
	ctx.Step(`^"([^"]*)" looks up the claim code$`, steps.lookupClaimCode)
	ctx.Step(`^"([^"]*)" (approves|rejects) the claim$`, steps.decideClaim)
	ctx.Step(`^"([^"]*)" has (\d+) unread notifications? or more$`, steps.unreadAtLeast)
}

type workflowSteps struct {
	tc TestContext
}

func (s *workflowSteps) reportItem(ctx context.Context, email, itemType, location, answer string) error {
	body := map[string]any{
		"type":     itemType,
		"location": location,
		"found_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"security_questions": []map[string]string{
			{"question": "What is distinctive about it?", "answer": answer},
		},
	}
	return s.tc.POSTAs(email, "/items", body)
}

func (s *workflowSteps) saveItemID(ctx context.Context) error {
	return s.saveField("id", "item_id")
}

func (s *workflowSteps) verifyItem(ctx context.Context, email, verb string) error {
	itemID := s.tc.Saved("item_id")
	if itemID == "" {
		return fmt.Errorf("item ID not set")
	}
	return s.tc.POSTAs(email, "/admin/items/"+itemID+"/verify", map[string]bool{"approve": verb == "approves"})
}

func (s *workflowSteps) viewItem(ctx context.Context, email string) error {
	return s.tc.GETAs(email, "/items/"+s.tc.Saved("item_id"))
}

func (s *workflowSteps) claimItem(ctx context.Context, email, answer string) error {
	itemID := s.tc.Saved("item_id")
	if itemID == "" {
		return fmt.Errorf("item ID not set")
	}
	return s.tc.POSTAs(email, "/claims", map[string]any{
		"item_id": itemID,
		"answers": []string{answer},
	})
}

func (s *workflowSteps) saveClaim(ctx context.Context) error {
	if err := s.saveField("id", "claim_id"); err != nil {
		return err
	}
	return s.saveField("code", "claim_code")
}

func (s *workflowSteps) lookupClaimCode(ctx context.Context, email string) error {
	code := s.tc.Saved("claim_code")
	if code == "" {
		return fmt.Errorf("claim code not set")
	}
	return s.tc.GETAs(email, "/admin/claims/by-code/"+code)
}

func (s *workflowSteps) decideClaim(ctx context.Context, email, verb string) error {
	claimID := s.tc.Saved("claim_id")
	if claimID == "" {
		return fmt.Errorf("claim ID not set")
	}
	return s.tc.POSTAs(email, "/admin/claims/"+claimID+"/decision", map[string]bool{"approve": verb == "approves"})
}

func (s *workflowSteps) unreadAtLeast(ctx context.Context, email string, want int) error {
	if err := s.tc.GETAs(email, "/notifications/unread"); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("unread")
	if err != nil {
		return err
	}
	n, ok := got.(float64)
	if !ok || int(n) < want {
		return fmt.Errorf("expected at least %d unread notifications, got %v", want, got)
	}
	return nil
}

func (s *workflowSteps) saveField(field, key string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return fmt.Errorf("failed to get %s from response: %w", field, err)
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s is not a string: %T", field, value)
	}
	s.tc.Save(key, str)
	return nil
}
