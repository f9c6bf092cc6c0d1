package e2e

import (
	"github.com/cucumber/godog"

	"topcharger/e2e/steps/common"
	"topcharger/e2e/steps/marketplace"
)

// RegisterSteps registers every step definition against tc.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	marketplace.RegisterSteps(ctx, tc)
}
