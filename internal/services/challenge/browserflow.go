package challenge

import (
	"encoding/base64"
	"encoding/json"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// BrowserFlowContext tells the browser client what to render next:
// a hidden fingerprinting iframe, an ACS challenge form, or nothing
// (terminal status reached).
type BrowserFlowContext struct {
	PaymentSession *domain.PaymentSession `json:"payment_session"`

	// Fingerprinting step
	IsFingerprintRequired bool   `json:"is_fingerprint_required"`
	ThreeDSMethodURL      string `json:"three_ds_method_url,omitempty"`
	ThreeDSMethodData     string `json:"three_ds_method_data,omitempty"`

	// ACS challenge step
	IsAcsChallengeRequired bool               `json:"is_acs_challenge_required"`
	FormActionURL          string             `json:"form_action_url,omitempty"`
	FormInputCReq          string             `json:"form_input_creq,omitempty"`
	FormInputSessionData   string             `json:"form_input_session_data,omitempty"`
	FormPostAcsURL         bool               `json:"form_post_acs_url"`
	FormFullPageRedirect   bool               `json:"form_full_page_redirect"`
	CardHolderInfo         string             `json:"card_holder_info,omitempty"`
	ChallengeWindowSize    *domain.WindowSize `json:"challenge_window_size,omitempty"`
	TransactionSessionID   string             `json:"transaction_session_id,omitempty"`
}

// threeDSMethodData is the payload posted into the hidden
// fingerprinting iframe.
type threeDSMethodData struct {
	ServerTransactionID   string `json:"threeDSServerTransID"`
	MethodNotificationURL string `json:"threeDSMethodNotificationURL"`
}

// challengeRequest is the CReq payload posted to the ACS challenge URL.
type challengeRequest struct {
	ServerTransactionID string `json:"threeDSServerTransID"`
	AcsTransactionID    string `json:"acsTransID"`
	MessageVersion      string `json:"messageVersion"`
	MessageType         string `json:"messageType"`
	ChallengeWindowSize string `json:"challengeWindowSize,omitempty"`
}

// encodeFormPayload serializes v and base64url-encodes it for inclusion
// as a hidden form input, per the 3DS2 browser channel convention.
func encodeFormPayload(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// newFingerprintContext builds the context for the hidden
// fingerprinting iframe step.
func newFingerprintContext(ps *domain.PaymentSession, method *domain.MethodData, notificationURL string) *BrowserFlowContext {
	return &BrowserFlowContext{
		PaymentSession:        ps,
		IsFingerprintRequired: true,
		ThreeDSMethodURL:      method.ThreeDSMethodURL,
		ThreeDSMethodData: encodeFormPayload(threeDSMethodData{
			ServerTransactionID:   method.ThreeDSServerTransactionID,
			MethodNotificationURL: notificationURL,
		}),
	}
}

// newAcsChallengeContext builds the context describing the ACS
// challenge form the client must render.
func newAcsChallengeContext(ps *domain.PaymentSession, auth *domain.AuthenticationResponse, windowSizeCode string) *BrowserFlowContext {
	ws := domain.ChallengeWindowDimensions(windowSizeCode)
	return &BrowserFlowContext{
		PaymentSession:         ps,
		IsAcsChallengeRequired: true,
		FormActionURL:          auth.AcsURL,
		FormInputCReq: encodeFormPayload(challengeRequest{
			ServerTransactionID: auth.ThreeDSServerTransactionID,
			AcsTransactionID:    auth.AcsTransactionID,
			MessageVersion:      auth.MessageVersion,
			MessageType:         "CReq",
			ChallengeWindowSize: windowSizeCode,
		}),
		FormInputSessionData: encodeFormPayload(map[string]string{
			"payment_session_id": ps.ID,
		}),
		FormPostAcsURL:       auth.IsFormPostAcsURL,
		FormFullPageRedirect: auth.IsFullPageRedirect,
		CardHolderInfo:       auth.CardHolderInfo,
		ChallengeWindowSize:  &ws,
		TransactionSessionID: auth.TransactionSessionID,
	}
}

// newTerminalContext builds the context returned when no further client
// action is needed.
func newTerminalContext(ps *domain.PaymentSession) *BrowserFlowContext {
	return &BrowserFlowContext{PaymentSession: ps}
}
