package e2e

import (
	"github.com/cucumber/godog"

	"lostfound/e2e/steps/admin"
	"lostfound/e2e/steps/auth"
	"lostfound/e2e/steps/common"
	"lostfound/e2e/steps/ratelimit"
	"lostfound/e2e/steps/workflow"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	workflow.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
