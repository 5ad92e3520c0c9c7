package domain

// TransactionStatus is the raw transStatus value returned by the
// authentication backend (EMVCo 3DS2 message field, plus the FR
// extension used for frictionless-rejected).
type TransactionStatus string

const (
	TransactionStatusApproved             TransactionStatus = "Y"
	TransactionStatusDeclined             TransactionStatus = "N"
	TransactionStatusUnavailable          TransactionStatus = "U"
	TransactionStatusAttempted            TransactionStatus = "A"
	TransactionStatusChallenge            TransactionStatus = "C"
	TransactionStatusRejected             TransactionStatus = "R"
	TransactionStatusFrictionlessRejected TransactionStatus = "FR"
)

// Challenge cancel indicator names reported on completion.
const (
	CancelledByCardHolder   = "CancelledByCardHolder"
	CancelledByRequestor    = "CancelledByRequestor"
	TransactionAbandoned    = "TransactionAbandoned"
	TransactionCReqTimedOut = "TransactionCReqTimedOut"
	TransactionTimedOut     = "TransactionTimedOut"
)

// TransactionStatusReasonTimeout is the ACS timeout reason code.
const TransactionStatusReasonTimeout = "TSR14"

// EnrollmentStatus reports whether the card is enrolled for 3DS.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled    EnrollmentStatus = "Enrolled"
	EnrollmentStatusNotEnrolled EnrollmentStatus = "NotEnrolled"
	EnrollmentStatusBypassed    EnrollmentStatus = "Bypassed"
	EnrollmentStatusUnavailable EnrollmentStatus = "Unavailable"
)

// ThreeDSMethodCompletionIndicator reports the outcome of browser
// fingerprinting prior to authentication.
type ThreeDSMethodCompletionIndicator string

const (
	MethodCompleted    ThreeDSMethodCompletionIndicator = "Y"
	MethodNotCompleted ThreeDSMethodCompletionIndicator = "N"
	MethodUnavailable  ThreeDSMethodCompletionIndicator = "U"
)

// BrowserInfo carries the client browser attributes required for 3DS2
// browser-channel authentication.
type BrowserInfo struct {
	UserAgent           string `json:"browser_user_agent,omitempty"`
	AcceptHeader        string `json:"browser_accept_header,omitempty"`
	Language            string `json:"browser_language,omitempty"`
	ScreenWidth         int    `json:"browser_screen_width,omitempty"`
	ScreenHeight        int    `json:"browser_screen_height,omitempty"`
	ColorDepth          int    `json:"browser_color_depth,omitempty"`
	TimeZone            string `json:"browser_tz,omitempty"`
	JavaEnabled         bool   `json:"browser_java_enabled"`
	JavascriptEnabled   bool   `json:"browser_javascript_enabled"`
	IPAddress           string `json:"browser_ip,omitempty"`
	ChallengeWindowSize string `json:"challenge_window_size,omitempty"`
}

// MethodData is returned by the backend when the issuer ACS publishes a
// fingerprinting endpoint.
type MethodData struct {
	ThreeDSServerTransactionID string `json:"three_ds_server_transaction_id"`
	ThreeDSMethodURL           string `json:"three_ds_method_url,omitempty"`
}

// SessionRequest is the backend payload used to allocate a payment
// session identifier before any authentication is attempted.
type SessionRequest struct {
	AccountID                  string            `json:"account_id"`
	PaymentInstrumentID        string            `json:"payment_instrument_id"`
	PaymentInstrumentAccountID string            `json:"payment_instrument_account_id,omitempty"`
	Partner                    string            `json:"partner"`
	Amount                     string            `json:"amount"`
	Currency                   string            `json:"currency"`
	Country                    string            `json:"country"`
	HasPreOrder                bool              `json:"has_pre_order"`
	IsLegacy                   bool              `json:"is_legacy"`
	IsMOTO                     bool              `json:"is_moto"`
	ThreeDSecureScenario       ChallengeScenario `json:"three_dsecure_scenario"`
	PaymentMethodFamily        string            `json:"payment_method_family,omitempty"`
	PaymentMethodType          string            `json:"payment_method_type,omitempty"`
	DeviceChannel              DeviceChannel     `json:"device_channel"`
	IsChallengeRequired        bool              `json:"is_challenge_required"`
	PurchaseOrderID            string            `json:"purchase_order_id,omitempty"`
	UserID                     string            `json:"user_id,omitempty"`
	CvvToken                   string            `json:"cvv_token,omitempty"`
	IsPoints                   bool              `json:"is_points"`
	RewardsPoints              int64             `json:"rewards_points,omitempty"`
}

// SessionResponse carries the backend-issued session identifier.
type SessionResponse struct {
	SessionID string `json:"payment_session_id"`
}

// AuthenticationRequest is the backend authenticate payload for both the
// browser and app channels.
type AuthenticationRequest struct {
	SessionID                  string                           `json:"payment_session_id"`
	AccountID                  string                           `json:"account_id"`
	BrowserInfo                *BrowserInfo                     `json:"browser_info,omitempty"`
	ThreeDSServerTransactionID string                           `json:"three_ds_server_transaction_id,omitempty"`
	MethodCompletionIndicator  ThreeDSMethodCompletionIndicator `json:"three_ds_method_completion_indicator,omitempty"`
	ChallengeNotificationURL   string                           `json:"acs_challenge_notification_url,omitempty"`
	MessageVersion             string                           `json:"message_version,omitempty"`
	SdkAppID                   string                           `json:"sdk_app_id,omitempty"`
	SdkEncryptedData           string                           `json:"sdk_encrypted_data,omitempty"`
	SdkEphemeralPublicKey      string                           `json:"sdk_ephemeral_public_key,omitempty"`
	SdkMaxTimeout              string                           `json:"sdk_max_timeout,omitempty"`
	SdkInterface               string                           `json:"sdk_interface,omitempty"`
	SdkReferenceNumber         string                           `json:"sdk_reference_number,omitempty"`
	SdkTransactionID           string                           `json:"sdk_transaction_id,omitempty"`
	SdkUIType                  string                           `json:"sdk_ui_type,omitempty"`
	CvvToken                   string                           `json:"cvv_token,omitempty"`
	UserID                     string                           `json:"user_id,omitempty"`
	SuccessURL                 string                           `json:"success_url,omitempty"`
	FailureURL                 string                           `json:"failure_url,omitempty"`
}

// AuthenticationResponse is the backend authenticate result. The ACS
// fields drive the challenge form the client must render.
type AuthenticationResponse struct {
	EnrollmentStatus           EnrollmentStatus  `json:"enrollment_status,omitempty"`
	EnrollmentType             string            `json:"enrollment_type,omitempty"`
	TransactionStatus          TransactionStatus `json:"transaction_challenge_status,omitempty"`
	TransactionStatusReason    string            `json:"transaction_challenge_status_reason,omitempty"`
	ThreeDSServerTransactionID string            `json:"three_ds_server_transaction_id,omitempty"`
	AcsURL                     string            `json:"acs_url,omitempty"`
	AcsTransactionID           string            `json:"acs_transaction_id,omitempty"`
	AcsSignedContent           string            `json:"acs_signed_content,omitempty"`
	AcsOperatorID              string            `json:"acs_operator_id,omitempty"`
	AcsReferenceNumber         string            `json:"acs_reference_number,omitempty"`
	AcsRenderingType           *AcsRenderingType `json:"acs_rendering_type,omitempty"`
	AcsChallengeMandated       string            `json:"acs_challenge_mandated,omitempty"`
	AuthenticationType         string            `json:"authentication_type,omitempty"`
	CardHolderInfo             string            `json:"card_holder_info,omitempty"`
	DsReferenceNumber          string            `json:"ds_reference_number,omitempty"`
	MessageVersion             string            `json:"message_version,omitempty"`
	IsFormPostAcsURL           bool              `json:"is_form_post_acs_url"`
	IsFullPageRedirect         bool              `json:"is_full_page_redirect"`
	TransactionSessionID       string            `json:"transaction_session_id,omitempty"`
	IsAcsChallengeRequired     bool              `json:"is_acs_challenge_required"`
}

// AcsRenderingType is the ACS interface/template selection for app flows.
type AcsRenderingType struct {
	AcsInterface  string `json:"acs_interface,omitempty"`
	AcsUITemplate string `json:"acs_ui_template,omitempty"`
}

// CompletionRequest is the backend result/completion payload.
type CompletionRequest struct {
	SessionID               string            `json:"payment_session_id"`
	AccountID               string            `json:"account_id"`
	AuthorizationParameters map[string]string `json:"authorization_parameters,omitempty"`
}

// CompletionResponse is the backend challenge completion result.
type CompletionResponse struct {
	TransactionStatus            TransactionStatus `json:"transaction_challenge_status,omitempty"`
	TransactionStatusReason      string            `json:"transaction_challenge_status_reason,omitempty"`
	ChallengeCancelIndicator     string            `json:"challenge_cancel_indicator,omitempty"`
	ChallengeCompletionIndicator string            `json:"challenge_completion_indicator,omitempty"`
}

// ClientAuthenticationRequest is the app-channel authenticate payload
// received from the device SDK.
type ClientAuthenticationRequest struct {
	SettingsVersion         string `json:"settings_version,omitempty"`
	SettingsVersionTryCount int    `json:"settings_version_try_count,omitempty"`
	SdkAppID                string `json:"sdk_app_id,omitempty"`
	SdkEncryptedData        string `json:"sdk_encrypted_data,omitempty"`
	SdkEphemeralPublicKey   string `json:"sdk_ephemeral_public_key,omitempty"`
	SdkMaxTimeout           string `json:"sdk_max_timeout,omitempty"`
	SdkInterface            string `json:"sdk_interface,omitempty"`
	SdkReferenceNumber      string `json:"sdk_reference_number,omitempty"`
	SdkTransactionID        string `json:"sdk_transaction_id,omitempty"`
	SdkUIType               string `json:"sdk_ui_type,omitempty"`
	MessageVersion          string `json:"message_version,omitempty"`
	Language                string `json:"language,omitempty"`
}

// ClientAuthenticationResponse is returned to the device SDK after the
// app-channel authenticate leg.
type ClientAuthenticationResponse struct {
	EnrollmentStatus           EnrollmentStatus  `json:"enrollment_status,omitempty"`
	ChallengeStatus            ChallengeStatus   `json:"challenge_status,omitempty"`
	AcsTransactionID           string            `json:"acs_transaction_id,omitempty"`
	AcsSignedContent           string            `json:"acs_signed_content,omitempty"`
	AcsRenderingType           *AcsRenderingType `json:"acs_rendering_type,omitempty"`
	AcsOperatorID              string            `json:"acs_operator_id,omitempty"`
	AcsReferenceNumber         string            `json:"acs_reference_number,omitempty"`
	ThreeDSServerTransactionID string            `json:"three_ds_server_transaction_id,omitempty"`
	DsReferenceNumber          string            `json:"ds_reference_number,omitempty"`
	MessageVersion             string            `json:"message_version,omitempty"`
	CardHolderInfo             string            `json:"card_holder_info,omitempty"`
	DisplayStrings             map[string]string `json:"display_strings,omitempty"`
	IsSystemError              bool              `json:"is_system_error"`
}
