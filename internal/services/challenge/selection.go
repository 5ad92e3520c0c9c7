package challenge

import (
	"strings"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// selectionInput is everything the 3DS version and challenge-type
// decisions consume.
type selectionInput struct {
	Instrument      *domain.PaymentInstrument
	Data            *domain.PaymentSessionData
	Flags           []string
	TestCtx         *TestContext
	PartnerSettings *PartnerSettings
}

// selectionResult is the 3DS protocol version verdict.
type selectionResult struct {
	Requires3DS1 bool
	Requires3DS2 bool
}

func isIndiaINR(data *domain.PaymentSessionData) bool {
	return strings.EqualFold(data.Country, "IN") && strings.EqualFold(data.Currency, "INR")
}

func isIndia(data *domain.PaymentSessionData) bool {
	return strings.EqualFold(data.Country, "IN")
}

func isAmex(pi *domain.PaymentInstrument) bool {
	return pi.IsCreditCard() && strings.EqualFold(pi.PaymentMethod.Type, "amex")
}

// selectionRule is one independently toggled adjustment. Rules are
// applied strictly in slice order; several flags interact, and the
// final verdict depends on that order.
type selectionRule struct {
	name  string
	apply func(in selectionInput, r *selectionResult)
}

var selectionRules = []selectionRule{
	{
		name: "billdesk 3ds requirement in India",
		apply: func(in selectionInput, r *selectionResult) {
			if in.Instrument.RequiresChallenge("3ds") &&
				hasFlag(in.Flags, FlagIndia3DSEnableForBillDesk) &&
				isIndiaINR(in.Data) {
				r.Requires3DS1 = true
			}
		},
	},
	{
		name: "instrument 3ds2 requirement",
		apply: func(in selectionInput, r *selectionResult) {
			if in.Instrument.RequiresChallenge("3ds2") {
				r.Requires3DS2 = true
			}
		},
	},
	{
		name: "suppress 3ds1 unless India challenge enabled or Amex in India",
		apply: func(in selectionInput, r *selectionResult) {
			if r.Requires3DS1 &&
				!hasFlag(in.Flags, FlagEnableIndia3DS1Challenge) &&
				!(isAmex(in.Instrument) && isIndia(in.Data)) {
				r.Requires3DS1 = false
			}
		},
	},
	{
		name: "3ds1 test scenario override",
		apply: func(in selectionInput, r *selectionResult) {
			if in.TestCtx.HasThreeDSOneTestScenario() {
				r.Requires3DS1 = true
				r.Requires3DS2 = false
			}
		},
	},
	{
		name: "psd2 test scenario / pretend flag forces 3ds2",
		apply: func(in selectionInput, r *selectionResult) {
			if (in.TestCtx.HasPSD2TestScenario() || hasFlag(in.Flags, FlagPretendPIMSReturned3DS2)) &&
				!(hasFlag(in.Flags, FlagEnableIndia3DS1Challenge) && isIndia(in.Data)) {
				r.Requires3DS2 = true
			}
		},
	},
	{
		name: "psd2 test scenario in India routes to 3ds1",
		apply: func(in selectionInput, r *selectionResult) {
			if in.TestCtx.HasPSD2TestScenario() && isIndia(in.Data) {
				r.Requires3DS1 = true
				if (in.Data.Amount.IsZero() || in.Data.ChallengeScenario == domain.ScenarioRecurringTransaction) &&
					isIndiaThreeDSCommercialPartner(in.Data.Partner) {
					r.Requires3DS1 = false
				}
			}
		},
	},
}

// resolveChallengeVersions applies the version adjustment rules in
// their fixed order and returns the verdict.
func resolveChallengeVersions(in selectionInput) selectionResult {
	var r selectionResult
	for _, rule := range selectionRules {
		rule.apply(in, &r)
	}
	return r
}

// isChallengeable reports whether the instrument can be subjected to
// any challenge flow at all. Everything else skips challenge outright.
func isChallengeable(pi *domain.PaymentInstrument) bool {
	return pi.IsCreditCard() || pi.IsUPI() || pi.IsUPIQRCode() || pi.IsLegacyBillDesk()
}

// decideChallengeType picks the challenge flow for a challengeable
// instrument given the version verdict. Evaluation order matters: the
// first matching arm wins.
func decideChallengeType(in selectionInput, r selectionResult) domain.ChallengeType {
	switch {
	case r.Requires3DS2:
		return domain.ChallengeTypePSD2
	case in.Instrument.IsLegacyBillDesk() && r.Requires3DS1:
		return domain.ChallengeTypeLegacyBillDesk
	case (in.Instrument.IsUPI() || in.Instrument.IsUPIQRCode()) &&
		(in.Data.ChallengeScenario == domain.ScenarioPaymentTransaction ||
			in.Data.ChallengeScenario == domain.ScenarioRecurringTransaction):
		return domain.ChallengeTypeUPI
	case r.Requires3DS1:
		return domain.ChallengeTypeIndia3DS
	case isIndia(in.Data) && !in.Data.Amount.IsZero() &&
		in.Data.ChallengeScenario == domain.ScenarioPaymentTransaction &&
		isIndiaThreeDSCommercialPartner(in.Data.Partner):
		return domain.ChallengeTypeIndia3DS
	case in.PartnerSettings != nil && in.PartnerSettings.ValidatePIOnAttachEnabled &&
		in.Instrument.IsCreditCard() && !isIndia(in.Data):
		return domain.ChallengeTypeValidatePIOnAttach
	default:
		return domain.ChallengeTypeNone
	}
}
