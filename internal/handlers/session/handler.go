package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	"github.com/commercepay/payment-challenge-service/internal/services/challenge"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/resilience"
)

// Handler exposes the payment challenge session operations over HTTP.
type Handler struct {
	manager  *challenge.Manager
	logger   ports.Logger
	validate *validator.Validate
	timeouts *resilience.TimeoutConfig
}

// NewHandler creates a session handler.
func NewHandler(manager *challenge.Manager, logger ports.Logger) *Handler {
	return &Handler{
		manager:  manager,
		logger:   logger,
		validate: validator.New(),
		timeouts: resilience.DefaultTimeoutConfig(),
	}
}

// Register wires the session routes onto the mux. Every route runs
// under the handler timeout so a stalled ACS cannot pin a connection.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/accounts/{accountId}/paymentSessions", h.withTimeout(h.CreateSession))
	mux.HandleFunc("GET /api/v1/paymentSessions/{sessionId}", h.withTimeout(h.GetSession))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/browserInfo", h.withTimeout(h.UpdateBrowserInfo))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/linkSession", h.withTimeout(h.LinkSession))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/threeDSMethodURL", h.withTimeout(h.GetThreeDSMethodURL))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/notifyThreeDSMethodCompleted", h.withTimeout(h.NotifyThreeDSMethodCompleted))
	mux.HandleFunc("POST /api/v1/accounts/{accountId}/paymentSessions/{sessionId}/authenticate", h.withTimeout(h.AuthenticateApp))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/authenticateThreeDSOne", h.withTimeout(h.AuthenticateThreeDSOne))
	mux.HandleFunc("POST /api/v1/paymentSessions/{sessionId}/authenticateRedirectionThreeDSOne", h.withTimeout(h.AuthenticateRedirectionThreeDSOne))
	mux.HandleFunc("POST /api/v1/accounts/{accountId}/paymentSessions/{sessionId}/notifyThreeDSChallengeCompleted", h.withTimeout(h.CompleteChallenge))
	mux.HandleFunc("POST /api/v1/accounts/{accountId}/paymentSessions/{sessionId}/completeThreeDSOneChallenge", h.withTimeout(h.CompleteThreeDSOneChallenge))
	mux.HandleFunc("GET /api/v1/paymentSessions/{sessionId}/redirect", h.withTimeout(h.Redirect))
}

func (h *Handler) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.timeouts.HandlerContext(r.Context())
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

// createSessionRequest is the inbound payload for session creation.
type createSessionRequest struct {
	domain.PaymentSessionData

	DeviceChannel    domain.DeviceChannel `json:"deviceChannel,omitempty"`
	EmailAddress     string               `json:"emailAddress,omitempty"`
	ExposedFlags     []string             `json:"exposedFlags,omitempty"`
	TestScenarios    []string             `json:"testScenarios,omitempty"`
	IsMotoAuthorized bool                 `json:"isMotoAuthorized,omitempty"`
	UserID           string               `json:"userId,omitempty"`

	PartnerSettings *partnerSettings `json:"partnerSettings,omitempty"`
}

type partnerSettings struct {
	PSD2Enabled                bool `json:"psd2Enabled"`
	ThreeDSOneEnabled          bool `json:"threeDSOneEnabled"`
	ValidatePIOnAttachEnabled  bool `json:"validatePIOnAttachEnabled"`
	SkipChallengeForZeroAmount bool `json:"skipChallengeForZeroAmount"`
}

// CreateSession handles POST /accounts/{accountId}/paymentSessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req.PaymentSessionData); err != nil {
		h.writeError(w, domain.WrapError(domain.ErrorCodeInvalidRequest, "session data failed validation", err))
		return
	}

	params := challenge.CreateSessionParams{
		AccountID:        accountID,
		Data:             &req.PaymentSessionData,
		DeviceChannel:    req.DeviceChannel,
		EmailAddress:     req.EmailAddress,
		ExposedFlags:     req.ExposedFlags,
		IsMotoAuthorized: req.IsMotoAuthorized,
		UserID:           req.UserID,
	}
	if len(req.TestScenarios) > 0 {
		params.TestContext = &challenge.TestContext{Scenarios: req.TestScenarios}
	}
	if req.PartnerSettings != nil {
		params.PartnerSettings = &challenge.PartnerSettings{
			PSD2Enabled:                req.PartnerSettings.PSD2Enabled,
			ThreeDSOneEnabled:          req.PartnerSettings.ThreeDSOneEnabled,
			ValidatePIOnAttachEnabled:  req.PartnerSettings.ValidatePIOnAttachEnabled,
			SkipChallengeForZeroAmount: req.PartnerSettings.SkipChallengeForZeroAmount,
		}
	}

	ps, err := h.manager.CreatePaymentSession(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ps)
}

// GetSession handles GET /paymentSessions/{sessionId}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ps, err := h.manager.TryGetPaymentSession(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ps == nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeSessionNotFound, "payment session not found"))
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

// UpdateBrowserInfo handles POST /paymentSessions/{sessionId}/browserInfo.
func (h *Handler) UpdateBrowserInfo(w http.ResponseWriter, r *http.Request) {
	var info domain.BrowserInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "request body is not valid JSON"))
		return
	}
	if err := h.manager.UpdateSessionBrowserInfo(r.Context(), r.PathValue("sessionId"), &info); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkSession handles POST /paymentSessions/{sessionId}/linkSession.
// Linking ties the session to its payment instrument on the instrument
// service so PI reads can surface the pending challenge.
func (h *Handler) LinkSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.LinkSession(r.Context(), r.PathValue("sessionId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetThreeDSMethodURL handles POST /paymentSessions/{sessionId}/threeDSMethodURL.
func (h *Handler) GetThreeDSMethodURL(w http.ResponseWriter, r *http.Request) {
	flow, err := h.manager.GetThreeDSMethodURL(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, flow)
}

// NotifyThreeDSMethodCompleted handles the ACS fingerprinting callback.
// The ACS posts a form; presence of the threeDSMethodData field marks
// the fingerprint as completed.
func (h *Handler) NotifyThreeDSMethodCompleted(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "callback form is malformed"))
		return
	}
	indicator := domain.MethodNotCompleted
	if r.PostFormValue("threeDSMethodData") != "" {
		indicator = domain.MethodCompleted
	}

	flow, err := h.manager.AuthenticateBrowser(r.Context(), r.PathValue("sessionId"), indicator)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, flow)
}

// AuthenticateApp handles the app-channel (SDK) authenticate leg.
func (h *Handler) AuthenticateApp(w http.ResponseWriter, r *http.Request) {
	var req domain.ClientAuthenticationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "request body is not valid JSON"))
		return
	}

	resp, err := h.manager.AuthenticateApp(r.Context(), r.PathValue("accountId"), r.PathValue("sessionId"), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type threeDSOneAuthRequest struct {
	CvvToken string `json:"cvvToken" validate:"required"`
}

// AuthenticateThreeDSOne handles the legacy 3DS1 authenticate leg.
func (h *Handler) AuthenticateThreeDSOne(w http.ResponseWriter, r *http.Request) {
	var req threeDSOneAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, domain.WrapError(domain.ErrorCodeInvalidRequest, "cvvToken is required", err))
		return
	}

	flow, err := h.manager.AuthenticateThreeDSOne(r.Context(), r.PathValue("sessionId"), req.CvvToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, flow)
}

type redirectionAuthRequest struct {
	SuccessURL string `json:"successUrl" validate:"required,url"`
	FailureURL string `json:"failureUrl" validate:"required,url"`
}

// AuthenticateRedirectionThreeDSOne handles the full-page 3DS1 variant.
func (h *Handler) AuthenticateRedirectionThreeDSOne(w http.ResponseWriter, r *http.Request) {
	var req redirectionAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, domain.WrapError(domain.ErrorCodeInvalidRequest, "successUrl and failureUrl are required", err))
		return
	}

	flow, err := h.manager.AuthenticateRedirectionThreeDSOne(r.Context(), r.PathValue("sessionId"), req.SuccessURL, req.FailureURL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, flow)
}

// CompleteChallenge handles the 3DS2 challenge completion callback.
func (h *Handler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	ps, err := h.manager.CompleteThreeDSChallenge(r.Context(), r.PathValue("accountId"), r.PathValue("sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

// CompleteThreeDSOneChallenge handles the legacy 3DS1 completion,
// forwarding the ACS form fields as authorization parameters.
func (h *Handler) CompleteThreeDSOneChallenge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeInvalidRequest, "callback form is malformed"))
		return
	}
	authParams := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		authParams[k] = r.PostFormValue(k)
	}

	ps, err := h.manager.CompleteThreeDSOneChallenge(r.Context(), r.PathValue("accountId"), r.PathValue("sessionId"), authParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

// Redirect sends the browser to the partner's success or failure URL
// after a redirection-style 3DS1 flow.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ps, err := h.manager.TryGetPaymentSession(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ps == nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeSessionNotFound, "payment session not found"))
		return
	}

	target, err := challenge.ChallengeRedirectURL(ps)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", ports.Err(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(domain.ErrorCodeInternalError)
	message := "internal server error"

	var domainErr *domain.DomainError
	var svcErr *pkgerrors.ServiceError
	switch {
	case errors.As(err, &domainErr):
		code = string(domainErr.Code)
		message = domainErr.Message
		status = statusForCode(domainErr.Code)
	case errors.As(err, &svcErr):
		code = svcErr.Code
		message = svcErr.Message
		status = http.StatusBadGateway
		if svcErr.StatusCode >= 400 && svcErr.StatusCode < 500 {
			status = svcErr.StatusCode
		}
	}

	if status >= 500 {
		h.logger.Error("request failed", ports.String("error_code", code), ports.Err(err))
	} else {
		h.logger.Warn("request rejected", ports.String("error_code", code), ports.Err(err))
	}
	h.writeJSON(w, status, errorResponse{ErrorCode: code, Message: message})
}

func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeSessionNotFound, domain.ErrorCodeInstrumentNotFound, domain.ErrorCodeAccountPINotFound:
		return http.StatusNotFound
	case domain.ErrorCodeInvalidRequest, domain.ErrorCodeInvalidQueryParameter,
		domain.ErrorCodeInvalidAccountID, domain.ErrorCodeSessionInvalid,
		domain.ErrorCodeSettingsVersionMismatch, domain.ErrorCodeInvalidInstrumentDetails,
		domain.ErrorCodeSessionExpired:
		return http.StatusBadRequest
	case domain.ErrorCodeUnauthorizedMoto, domain.ErrorCodeOwnershipDenied:
		return http.StatusForbidden
	case domain.ErrorCodeSessionConflict:
		return http.StatusConflict
	case domain.ErrorCodeSessionUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
