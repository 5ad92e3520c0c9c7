package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChallengeStatus is the lifecycle state of a payment challenge session.
type ChallengeStatus string

const (
	ChallengeStatusUnknown             ChallengeStatus = "Unknown"
	ChallengeStatusSucceeded           ChallengeStatus = "Succeeded"
	ChallengeStatusFailed              ChallengeStatus = "Failed"
	ChallengeStatusTimedOut            ChallengeStatus = "TimedOut"
	ChallengeStatusCancelled           ChallengeStatus = "Cancelled"
	ChallengeStatusByPassed            ChallengeStatus = "ByPassed"
	ChallengeStatusNotApplicable       ChallengeStatus = "NotApplicable"
	ChallengeStatusInternalServerError ChallengeStatus = "InternalServerError"
)

var challengeStatuses = []ChallengeStatus{
	ChallengeStatusUnknown,
	ChallengeStatusSucceeded,
	ChallengeStatusFailed,
	ChallengeStatusTimedOut,
	ChallengeStatusCancelled,
	ChallengeStatusByPassed,
	ChallengeStatusNotApplicable,
	ChallengeStatusInternalServerError,
}

// ParseChallengeStatus resolves a status name case-insensitively to its
// canonical value. The bool result reports whether the name is known.
func ParseChallengeStatus(name string) (ChallengeStatus, bool) {
	for _, s := range challengeStatuses {
		if strings.EqualFold(name, string(s)) {
			return s, true
		}
	}
	return ChallengeStatusUnknown, false
}

// IsTerminal reports whether the status can no longer transition.
// Every status other than Unknown is terminal.
func (s ChallengeStatus) IsTerminal() bool {
	return s != ChallengeStatusUnknown && s != ""
}

// IsAuthenticationVerified reports whether the status counts as a
// successfully verified authentication for attestation purposes.
func (s ChallengeStatus) IsAuthenticationVerified() bool {
	switch s {
	case ChallengeStatusSucceeded, ChallengeStatusByPassed, ChallengeStatusNotApplicable:
		return true
	}
	return false
}

// ChallengeType identifies which challenge flow a session was routed to.
type ChallengeType string

const (
	ChallengeTypeNone               ChallengeType = ""
	ChallengeTypePSD2               ChallengeType = "PSD2Challenge"
	ChallengeTypeLegacyBillDesk     ChallengeType = "LegacyBillDeskPaymentChallenge"
	ChallengeTypeUPI                ChallengeType = "UPIChallenge"
	ChallengeTypeIndia3DS           ChallengeType = "India3DSChallenge"
	ChallengeTypeValidatePIOnAttach ChallengeType = "ValidatePIOnAttachChallenge"
)

// ChallengeScenario describes why the payment needs authentication.
type ChallengeScenario string

const (
	ScenarioPaymentTransaction   ChallengeScenario = "PaymentTransaction"
	ScenarioRecurringTransaction ChallengeScenario = "RecurringTransaction"
	ScenarioAddCard              ChallengeScenario = "AddCard"
)

// DeviceChannel is the 3DS2 device channel of the requesting client.
type DeviceChannel string

const (
	DeviceChannelBrowser  DeviceChannel = "browser"
	DeviceChannelAppBased DeviceChannel = "app_based"
)

// WindowSize is a challenge iframe size in CSS units.
type WindowSize struct {
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Challenge window size codes defined by EMVCo for the CReq windowSize field.
const (
	ChallengeWindowOne   = "01"
	ChallengeWindowTwo   = "02"
	ChallengeWindowThree = "03"
	ChallengeWindowFour  = "04"
	ChallengeWindowFive  = "05"
)

var challengeWindowSizes = map[string]WindowSize{
	ChallengeWindowOne:   {Width: "250px", Height: "400px"},
	ChallengeWindowTwo:   {Width: "390px", Height: "400px"},
	ChallengeWindowThree: {Width: "500px", Height: "600px"},
	ChallengeWindowFour:  {Width: "600px", Height: "400px"},
	ChallengeWindowFive:  {Width: "100%", Height: "100%"},
}

// ChallengeWindowDimensions resolves a window size code to pixel dimensions.
// Unknown codes fall back to full-page.
func ChallengeWindowDimensions(code string) WindowSize {
	if ws, ok := challengeWindowSizes[code]; ok {
		return ws
	}
	return challengeWindowSizes[ChallengeWindowFive]
}

// PaymentSessionData is the client-supplied payload used to open a session.
type PaymentSessionData struct {
	PaymentInstrumentID      string            `json:"piid" validate:"required"`
	Language                 string            `json:"language,omitempty"`
	Partner                  string            `json:"partner" validate:"required"`
	Amount                   decimal.Decimal   `json:"amount"`
	Currency                 string            `json:"currency" validate:"required,len=3"`
	Country                  string            `json:"country" validate:"required,len=2"`
	HasPreOrder              bool              `json:"hasPreOrder"`
	IsLegacy                 bool              `json:"isLegacy"`
	IsMOTO                   bool              `json:"isMOTO"`
	ChallengeScenario        ChallengeScenario `json:"challengeScenario" validate:"required"`
	ChallengeWindowSize      string            `json:"challengeWindowSize,omitempty"`
	BillableAccountID        string            `json:"billableAccountId,omitempty"`
	ClassicProduct           string            `json:"classicProduct,omitempty"`
	PurchaseOrderID          string            `json:"purchaseOrderId,omitempty"`
	PaymentMethodType        string            `json:"paymentMethodType,omitempty"`
	RedeemRewards            bool              `json:"redeemRewards"`
	RewardsPoints            int64             `json:"rewardsPoints,omitempty"`
	CommercialAccountID      string            `json:"commercialAccountId,omitempty"`
	PiRequiresAuthentication bool              `json:"piRequiresAuthentication"`
}

// PaymentSession is the externally visible view of a challenge session.
// It embeds the creation payload so callers get their inputs echoed back.
type PaymentSession struct {
	PaymentSessionData

	ID                  string          `json:"id"`
	IsChallengeRequired bool            `json:"isChallengeRequired"`
	ChallengeStatus     ChallengeStatus `json:"challengeStatus"`
	ChallengeType       ChallengeType   `json:"challengeType,omitempty"`
	Signature           string          `json:"signature,omitempty"`
	UserDisplayMessage  string          `json:"userDisplayMessage,omitempty"`
	SuccessURL          string          `json:"successUrl,omitempty"`
	FailureURL          string          `json:"failureUrl,omitempty"`
}

// StoredPaymentSession is the full session aggregate persisted between the
// create, authenticate and complete legs of a challenge.
type StoredPaymentSession struct {
	ID                         string                  `json:"id"`
	AccountID                  string                  `json:"account_id"`
	PaymentInstrumentID        string                  `json:"payment_instrument_id"`
	PaymentInstrumentAccountID string                  `json:"payment_instrument_account_id,omitempty"`
	BillableAccountID          string                  `json:"billable_account_id,omitempty"`
	CommercialAccountID        string                  `json:"commercial_account_id,omitempty"`
	ClassicProduct             string                  `json:"classic_product,omitempty"`
	EmailAddress               string                  `json:"email_address,omitempty"`
	Language                   string                  `json:"language,omitempty"`
	Partner                    string                  `json:"partner"`
	Amount                     decimal.Decimal         `json:"amount"`
	Currency                   string                  `json:"currency"`
	Country                    string                  `json:"country"`
	HasPreOrder                bool                    `json:"has_pre_order"`
	IsMOTO                     bool                    `json:"is_moto"`
	IsLegacy                   bool                    `json:"is_legacy"`
	RedeemRewards              bool                    `json:"redeem_rewards"`
	RewardsPoints              int64                   `json:"rewards_points,omitempty"`
	PurchaseOrderID            string                  `json:"purchase_order_id,omitempty"`
	UserID                     string                  `json:"user_id,omitempty"`
	ChallengeScenario          ChallengeScenario       `json:"challenge_scenario"`
	ChallengeWindowSize        string                  `json:"challenge_window_size,omitempty"`
	DeviceChannel              DeviceChannel           `json:"device_channel"`
	PaymentMethodFamily        string                  `json:"payment_method_family,omitempty"`
	PaymentMethodType          string                  `json:"payment_method_type,omitempty"`
	PiRequiresAuthentication   bool                    `json:"pi_requires_authentication"`
	IsChallengeRequired        bool                    `json:"is_challenge_required"`
	ChallengeStatus            ChallengeStatus         `json:"challenge_status"`
	ChallengeType              ChallengeType           `json:"challenge_type,omitempty"`
	ExposedFlags               []string                `json:"exposed_flags,omitempty"`
	BrowserInfo                *BrowserInfo            `json:"browser_info,omitempty"`
	MethodData                 *MethodData             `json:"method_data,omitempty"`
	AuthenticationResponse     *AuthenticationResponse `json:"authentication_response,omitempty"`
	TransactionStatus          TransactionStatus       `json:"transaction_challenge_status,omitempty"`
	TransactionStatusReason    string                  `json:"transaction_challenge_status_reason,omitempty"`
	ChallengeCancelIndicator   string                  `json:"transaction_challenge_cancel_indicator,omitempty"`
	IsSystemError              bool                    `json:"is_system_error"`
	SuccessURL                 string                  `json:"success_url,omitempty"`
	FailureURL                 string                  `json:"failure_url,omitempty"`
	CreatedAt                  time.Time               `json:"created_at"`
	UpdatedAt                  time.Time               `json:"updated_at"`
}

// View projects the stored aggregate back onto the external session shape.
func (s *StoredPaymentSession) View() *PaymentSession {
	return &PaymentSession{
		PaymentSessionData: PaymentSessionData{
			PaymentInstrumentID:      s.PaymentInstrumentID,
			Language:                 s.Language,
			Partner:                  s.Partner,
			Amount:                   s.Amount,
			Currency:                 s.Currency,
			Country:                  s.Country,
			HasPreOrder:              s.HasPreOrder,
			IsLegacy:                 s.IsLegacy,
			IsMOTO:                   s.IsMOTO,
			ChallengeScenario:        s.ChallengeScenario,
			ChallengeWindowSize:      s.ChallengeWindowSize,
			BillableAccountID:        s.BillableAccountID,
			ClassicProduct:           s.ClassicProduct,
			PurchaseOrderID:          s.PurchaseOrderID,
			PaymentMethodType:        s.PaymentMethodType,
			RedeemRewards:            s.RedeemRewards,
			RewardsPoints:            s.RewardsPoints,
			CommercialAccountID:      s.CommercialAccountID,
			PiRequiresAuthentication: s.PiRequiresAuthentication,
		},
		ID:                  s.ID,
		IsChallengeRequired: s.IsChallengeRequired,
		ChallengeStatus:     s.ChallengeStatus,
		ChallengeType:       s.ChallengeType,
		SuccessURL:          s.SuccessURL,
		FailureURL:          s.FailureURL,
	}
}

// HasExposedFlag reports whether the named feature flag was exposed to the
// session when it was created. Flag names are compared case-insensitively.
func (s *StoredPaymentSession) HasExposedFlag(flag string) bool {
	for _, f := range s.ExposedFlags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// PaymentInstrumentSession records which challenge flows a given instrument
// still has outstanding, keyed separately from the payment session itself.
type PaymentInstrumentSession struct {
	ID                string   `json:"id"`
	AccountID         string   `json:"account_id"`
	SessionID         string   `json:"session_id"`
	RequiredChallenge []string `json:"required_challenge,omitempty"`
}
