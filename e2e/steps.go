package e2e

import (
	"github.com/cucumber/godog"

	"agentconsent/e2e/steps/common"
	"agentconsent/e2e/steps/consent"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	consent.RegisterSteps(ctx, tc)
}
