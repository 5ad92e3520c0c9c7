package challenge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

func instrument(family, typ string, required ...string) *domain.PaymentInstrument {
	return &domain.PaymentInstrument{
		ID:            "pi-test",
		PaymentMethod: domain.PaymentMethod{Family: family, Type: typ},
		Details:       domain.PaymentInstrumentDetails{RequiredChallenge: required},
	}
}

func baseData(country, currency string) *domain.PaymentSessionData {
	return &domain.PaymentSessionData{
		PaymentInstrumentID: "pi-test",
		Partner:             "webblends",
		Amount:              decimal.NewFromInt(100),
		Currency:            currency,
		Country:             country,
		ChallengeScenario:   domain.ScenarioPaymentTransaction,
	}
}

func TestResolveChallengeVersions(t *testing.T) {
	tests := []struct {
		name    string
		in      selectionInput
		want3d1 bool
		want3d2 bool
	}{
		{
			name: "3ds2 requirement selects 3ds2",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds2"),
				Data:       baseData("DE", "EUR"),
			},
			want3d2: true,
		},
		{
			name: "billdesk 3ds in India needs the billdesk flag",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds"),
				Data:       baseData("IN", "INR"),
			},
		},
		{
			name: "billdesk 3ds in India with both flags",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds"),
				Data:       baseData("IN", "INR"),
				Flags:      []string{FlagIndia3DSEnableForBillDesk, FlagEnableIndia3DS1Challenge},
			},
			want3d1: true,
		},
		{
			name: "3ds1 suppressed without the India flag",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds"),
				Data:       baseData("IN", "INR"),
				Flags:      []string{FlagIndia3DSEnableForBillDesk},
			},
		},
		{
			name: "amex in India escapes the 3ds1 suppression",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "amex", "3ds"),
				Data:       baseData("IN", "INR"),
				Flags:      []string{FlagIndia3DSEnableForBillDesk},
			},
			want3d1: true,
		},
		{
			name: "3ds1 test scenario wins over 3ds2 requirement",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds2"),
				Data:       baseData("DE", "EUR"),
				TestCtx:    &TestContext{Scenarios: []string{"px-service-3ds1"}},
			},
			want3d1: true,
		},
		{
			name: "psd2 test scenario forces 3ds2",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa"),
				Data:       baseData("DE", "EUR"),
				TestCtx:    &TestContext{Scenarios: []string{"px-service-psd2"}},
			},
			want3d2: true,
		},
		{
			name: "pretend flag forces 3ds2",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa"),
				Data:       baseData("DE", "EUR"),
				Flags:      []string{FlagPretendPIMSReturned3DS2},
			},
			want3d2: true,
		},
		{
			name: "psd2 test scenario in India routes to 3ds1 instead",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa"),
				Data:       baseData("IN", "INR"),
				Flags:      []string{FlagEnableIndia3DS1Challenge},
				TestCtx:    &TestContext{Scenarios: []string{"px-service-psd2"}},
			},
			want3d1: true,
		},
		{
			name: "commercial partner zero-amount carve-out in India",
			in: selectionInput{
				Instrument: instrument(domain.FamilyCreditCard, "visa"),
				Data: &domain.PaymentSessionData{
					PaymentInstrumentID: "pi-test",
					Partner:             "azure",
					Amount:              decimal.Zero,
					Currency:            "INR",
					Country:             "IN",
					ChallengeScenario:   domain.ScenarioPaymentTransaction,
				},
				Flags:   []string{FlagEnableIndia3DS1Challenge},
				TestCtx: &TestContext{Scenarios: []string{"px-service-psd2"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveChallengeVersions(tt.in)
			assert.Equal(t, tt.want3d1, got.Requires3DS1, "Requires3DS1")
			assert.Equal(t, tt.want3d2, got.Requires3DS2, "Requires3DS2")
		})
	}
}

func TestIsChallengeable(t *testing.T) {
	assert.True(t, isChallengeable(instrument(domain.FamilyCreditCard, "visa")))
	assert.True(t, isChallengeable(instrument(domain.FamilyRealTimePayments, "upi")))
	assert.True(t, isChallengeable(instrument(domain.FamilyRealTimePayments, "upi_qr")))
	assert.True(t, isChallengeable(instrument("online_bank_transfer", "online_bank_transfer_india")))
	assert.False(t, isChallengeable(instrument("direct_debit", "sepa")))
	assert.False(t, isChallengeable(instrument(domain.FamilyEwallet, "paypal")))
}

func TestDecideChallengeType(t *testing.T) {
	t.Run("3ds2 wins over everything", func(t *testing.T) {
		in := selectionInput{
			Instrument: instrument(domain.FamilyCreditCard, "visa", "3ds2"),
			Data:       baseData("DE", "EUR"),
		}
		got := decideChallengeType(in, selectionResult{Requires3DS1: true, Requires3DS2: true})
		assert.Equal(t, domain.ChallengeTypePSD2, got)
	})

	t.Run("billdesk with 3ds1", func(t *testing.T) {
		in := selectionInput{
			Instrument: instrument("online_bank_transfer", "online_bank_transfer_india"),
			Data:       baseData("IN", "INR"),
		}
		got := decideChallengeType(in, selectionResult{Requires3DS1: true})
		assert.Equal(t, domain.ChallengeTypeLegacyBillDesk, got)
	})

	t.Run("upi payment transaction", func(t *testing.T) {
		in := selectionInput{
			Instrument: instrument(domain.FamilyRealTimePayments, "upi"),
			Data:       baseData("IN", "INR"),
		}
		got := decideChallengeType(in, selectionResult{})
		assert.Equal(t, domain.ChallengeTypeUPI, got)
	})

	t.Run("upi add card does not challenge", func(t *testing.T) {
		data := baseData("IN", "INR")
		data.ChallengeScenario = domain.ScenarioAddCard
		in := selectionInput{
			Instrument: instrument(domain.FamilyRealTimePayments, "upi"),
			Data:       data,
		}
		got := decideChallengeType(in, selectionResult{})
		assert.Equal(t, domain.ChallengeTypeNone, got)
	})

	t.Run("credit card with 3ds1", func(t *testing.T) {
		in := selectionInput{
			Instrument: instrument(domain.FamilyCreditCard, "visa"),
			Data:       baseData("IN", "INR"),
		}
		got := decideChallengeType(in, selectionResult{Requires3DS1: true})
		assert.Equal(t, domain.ChallengeTypeIndia3DS, got)
	})

	t.Run("commercial partner purchase in India", func(t *testing.T) {
		data := baseData("IN", "INR")
		data.Partner = "commercialstores"
		in := selectionInput{
			Instrument: instrument(domain.FamilyCreditCard, "visa"),
			Data:       data,
		}
		got := decideChallengeType(in, selectionResult{})
		assert.Equal(t, domain.ChallengeTypeIndia3DS, got)
	})

	t.Run("validate on attach partner outside India", func(t *testing.T) {
		in := selectionInput{
			Instrument:      instrument(domain.FamilyCreditCard, "visa"),
			Data:            baseData("US", "USD"),
			PartnerSettings: &PartnerSettings{ValidatePIOnAttachEnabled: true},
		}
		got := decideChallengeType(in, selectionResult{})
		assert.Equal(t, domain.ChallengeTypeValidatePIOnAttach, got)
	})

	t.Run("nothing applies", func(t *testing.T) {
		in := selectionInput{
			Instrument: instrument(domain.FamilyCreditCard, "visa"),
			Data:       baseData("US", "USD"),
		}
		got := decideChallengeType(in, selectionResult{})
		assert.Equal(t, domain.ChallengeTypeNone, got)
	})
}
