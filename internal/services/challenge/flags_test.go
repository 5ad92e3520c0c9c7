package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasFlag_CaseInsensitive(t *testing.T) {
	flags := []string{"pxpsd2skipfingerprint", "India3dsEnableForBilldesk"}

	assert.True(t, hasFlag(flags, FlagSkipFingerprint))
	assert.True(t, hasFlag(flags, "INDIA3DSENABLEFORBILLDESK"))
	assert.False(t, hasFlag(flags, FlagPSD2ProdIntegration))
	assert.False(t, hasFlag(nil, FlagSkipFingerprint))
}

func TestTestContext_ScenarioMatching(t *testing.T) {
	tc := &TestContext{Scenarios: []string{"PX-Service-PSD2-E2E-Emulator"}}

	assert.True(t, tc.HasPSD2TestScenario())
	assert.False(t, (*TestContext)(nil).HasPSD2TestScenario())
}
