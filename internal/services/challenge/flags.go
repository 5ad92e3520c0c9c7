package challenge

import "strings"

// Feature flags exposed to a session at creation time. Flags steer the
// challenge selection rules and safety-net behavior for the lifetime of
// the session.
const (
	FlagPSD2ProdIntegration          = "PXPSD2ProdIntegration"
	FlagPretendPIMSReturned3DS2      = "PXPSD2PretendPIMSReturned3DS2"
	FlagSkipFingerprint              = "PXPSD2SkipFingerprint"
	FlagEnableIndia3DS1Challenge     = "PXEnableIndia3DS1Challenge"
	FlagIndia3DSEnableForBillDesk    = "India3dsEnableForBilldesk"
	FlagEnableInstrumentSession      = "PXEnablePSD2PaymentInstrumentSession"
	FlagEnableUPIQRConsumer          = "EnableLtsUpiQRConsumer"
	FlagReturnFailedSessionState     = "PXReturnFailedSessionState"
	FlagChallengeTypeOnStoredSession = "PXAuthenticateChallengeTypeOnStoredSession"
	FlagEnableValidatePIOnAttach     = "PXEnableValidatePIOnAttachChallenge"
)

// settingsVersionFlagPrefix precedes the numeric SDK settings version in
// exposed flags, e.g. PXPSD2SettingVersionV11.
const settingsVersionFlagPrefix = "PXPSD2SettingVersionV"

// hasFlag reports whether flags contains the flag name. Flag names are
// compared case-insensitively.
func hasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// TestContext carries the test scenarios a request was issued under.
// Scenario names are matched case-insensitively by substring, mirroring
// how emulated end-to-end runs tag their traffic.
type TestContext struct {
	Scenarios []string
}

func (t *TestContext) hasScenario(name string) bool {
	if t == nil {
		return false
	}
	for _, s := range t.Scenarios {
		if strings.Contains(strings.ToLower(s), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// HasPSD2TestScenario reports whether the request targets the PSD2
// challenge emulator.
func (t *TestContext) HasPSD2TestScenario() bool {
	return t.hasScenario("px-service-psd2")
}

// HasThreeDSOneTestScenario reports whether the request targets the
// India 3DS1 emulator.
func (t *TestContext) HasThreeDSOneTestScenario() bool {
	return t.hasScenario("px-service-3ds1")
}

// PartnerSettings is the per-partner configuration that gates which
// challenge flows the partner has onboarded to.
type PartnerSettings struct {
	PSD2Enabled                bool
	ThreeDSOneEnabled          bool
	ValidatePIOnAttachEnabled  bool
	SkipChallengeForZeroAmount bool
}

// Partners whose commercial flows route India 3DS through the
// commercial challenge experience.
var indiaThreeDSCommercialPartners = map[string]struct{}{
	"commercialstores": {},
	"azure":            {},
	"azuresignup":      {},
	"azureibiza":       {},
}

func isIndiaThreeDSCommercialPartner(partner string) bool {
	_, ok := indiaThreeDSCommercialPartners[strings.ToLower(partner)]
	return ok
}

// Partners exempt from instrument authorization enforcement on PSD2.
var psd2IgnorePIAuthorizationPartners = map[string]struct{}{
	"webblends": {},
	"xbox":      {},
}

func isPSD2IgnorePIAuthorizationPartner(partner string) bool {
	_, ok := psd2IgnorePIAuthorizationPartners[strings.ToLower(partner)]
	return ok
}
