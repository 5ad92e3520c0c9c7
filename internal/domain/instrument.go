package domain

import "strings"

// Payment method families recognized by the challenge selection rules.
const (
	FamilyCreditCard       = "credit_card"
	FamilyRealTimePayments = "real_time_payments"
	FamilyEwallet          = "ewallet"
)

// PaymentMethod identifies an instrument's family and type.
type PaymentMethod struct {
	Family string `json:"payment_method_family"`
	Type   string `json:"payment_method_type"`
}

// PaymentInstrumentDetails is the subset of instrument detail fields the
// challenge flows consume.
type PaymentInstrumentDetails struct {
	RequiredChallenge            []string `json:"required_challenge,omitempty"`
	IsIndiaExpiryGroupingEnabled bool     `json:"is_india_expiry_grouping_enabled,omitempty"`
	UsageType                    string   `json:"usage_type,omitempty"`
	TransactionLink              string   `json:"transaction_link,omitempty"`
}

// PaymentInstrument is a stored payment instrument as returned by the
// instrument management service.
type PaymentInstrument struct {
	ID            string                   `json:"id"`
	AccountID     string                   `json:"account_id,omitempty"`
	Status        string                   `json:"status,omitempty"`
	PaymentMethod PaymentMethod            `json:"payment_method"`
	Details       PaymentInstrumentDetails `json:"details"`
}

// billdesk-routed legacy card types in India
var legacyBillDeskTypes = map[string]struct{}{
	"online_bank_transfer_india": {},
	"direct_debit_india":         {},
	"inicis":                     {},
}

func (pi *PaymentInstrument) IsCreditCard() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyCreditCard)
}

func (pi *PaymentInstrument) IsUPI() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyRealTimePayments) &&
		strings.EqualFold(pi.PaymentMethod.Type, "upi")
}

func (pi *PaymentInstrument) IsUPIQRCode() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyRealTimePayments) &&
		strings.EqualFold(pi.PaymentMethod.Type, "upi_qr")
}

func (pi *PaymentInstrument) IsLegacyBillDesk() bool {
	_, ok := legacyBillDeskTypes[strings.ToLower(pi.PaymentMethod.Type)]
	return ok
}

// RequiresChallenge reports whether the instrument carries the named
// outstanding challenge requirement (for example "3ds" or "3ds2").
func (pi *PaymentInstrument) RequiresChallenge(name string) bool {
	for _, c := range pi.Details.RequiredChallenge {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// ValidationParameters is the payload for CVV-style instrument validation.
type ValidationParameters struct {
	CvvToken  string `json:"cvv_token,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ValidationResult reports the outcome of an instrument validation call.
type ValidationResult struct {
	Status string `json:"status"`
}

// InstrumentQueryParams carries the optional query context forwarded to
// the instrument management service on lookups.
type InstrumentQueryParams struct {
	Partner           string
	Country           string
	Language          string
	BillableAccountID string
	ClassicProduct    string
}
