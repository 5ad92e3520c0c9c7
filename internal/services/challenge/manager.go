package challenge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
	"github.com/commercepay/payment-challenge-service/pkg/security"
)

// instrumentSessionPrefix keys PaymentInstrumentSession documents so
// they never collide with payment session ids in the store.
const instrumentSessionPrefix = "PI-"

// Config carries the environment-level knobs for the session manager.
type Config struct {
	// PSD2Enabled gates the whole challenge subsystem for the
	// environment. When false every created session is NotApplicable.
	PSD2Enabled bool

	// NotificationBaseURL is the externally reachable base URL the ACS
	// posts method/challenge completion notifications back to.
	NotificationBaseURL string

	// DefaultMessageVersion is the 3DS2 message version used when the
	// client SDK does not negotiate one.
	DefaultMessageVersion string
}

// Manager owns the payment challenge session lifecycle: it decides
// whether a challenge is required, drives the browser and app flows
// through their authenticate/complete legs, and persists session state
// after every transition.
//
// The manager holds no per-request state; the stored session is loaded
// once per operation and threaded through explicitly, so a single
// instance is safe for concurrent use.
type Manager struct {
	store           ports.SessionStore
	payerAuth       ports.AuthenticationGateway
	instruments     ports.InstrumentGateway
	transactionData ports.TransactionDataGateway
	signer          *security.SessionSigner
	safetyNet       *SafetyNet
	statusMapper    *StatusMapper
	logger          ports.Logger
	metrics         *observability.Metrics
	cfg             Config
}

// NewManager wires a session manager from its collaborators.
func NewManager(
	store ports.SessionStore,
	payerAuth ports.AuthenticationGateway,
	instruments ports.InstrumentGateway,
	transactionData ports.TransactionDataGateway,
	signer *security.SessionSigner,
	statusMapper *StatusMapper,
	logger ports.Logger,
	metrics *observability.Metrics,
	cfg Config,
) *Manager {
	if cfg.DefaultMessageVersion == "" {
		cfg.DefaultMessageVersion = "2.2.0"
	}
	return &Manager{
		store:           store,
		payerAuth:       payerAuth,
		instruments:     instruments,
		transactionData: transactionData,
		signer:          signer,
		safetyNet:       NewSafetyNet(logger, metrics),
		statusMapper:    statusMapper,
		logger:          logger,
		metrics:         metrics,
		cfg:             cfg,
	}
}

// CreateSessionParams is the inbound context for CreatePaymentSession.
type CreateSessionParams struct {
	AccountID        string
	Data             *domain.PaymentSessionData
	DeviceChannel    domain.DeviceChannel
	EmailAddress     string
	ExposedFlags     []string
	TestContext      *TestContext
	PartnerSettings  *PartnerSettings
	IsMotoAuthorized bool
	UserID           string
}

// signedView projects a stored session and attaches a fresh signature.
// Signatures are always recomputed, never copied forward.
func (m *Manager) signedView(stored *domain.StoredPaymentSession) *domain.PaymentSession {
	ps := stored.View()
	ps.Signature = m.signer.Sign(ps)
	return ps
}

func (m *Manager) sign(ps *domain.PaymentSession) *domain.PaymentSession {
	ps.Signature = m.signer.Sign(ps)
	return ps
}

func (m *Manager) recordOutcome(operation string, status domain.ChallengeStatus) {
	if m.metrics != nil {
		m.metrics.ChallengeOutcomes.WithLabelValues(operation, string(status)).Inc()
	}
}

// CreatePaymentSession opens a challenge session for a purchase and
// decides which challenge flow, if any, the client must run.
func (m *Manager) CreatePaymentSession(ctx context.Context, p CreateSessionParams) (*domain.PaymentSession, error) {
	traceID := uuid.NewString()

	// Environment or partner has the subsystem off: answer immediately
	// with a local session, no backend calls. A PSD2 test scenario
	// overrides the partner gate but never the environment gate.
	partnerDisabled := p.PartnerSettings != nil && !p.PartnerSettings.PSD2Enabled &&
		!p.TestContext.HasPSD2TestScenario()
	if !m.cfg.PSD2Enabled || partnerDisabled {
		ps := &domain.PaymentSession{
			PaymentSessionData:  *p.Data,
			ID:                  uuid.NewString(),
			IsChallengeRequired: false,
			ChallengeStatus:     domain.ChallengeStatusNotApplicable,
		}
		return m.sign(ps), nil
	}

	// MOTO transactions need explicit caller authorization. This is a
	// caller error and must propagate.
	if p.Data.IsMOTO && !p.IsMotoAuthorized {
		return nil, domain.NewDomainError(domain.ErrorCodeUnauthorizedMoto,
			"MOTO payment session requires MOTO authorization")
	}

	// Extended lookup tells us what challenges the instrument needs;
	// it does not enforce ownership.
	var instrument *domain.PaymentInstrument
	hadFailure, err := m.safetyNet.Execute(ctx, "GetExtendedInstrument", traceID, func(ctx context.Context) error {
		var innerErr error
		instrument, innerErr = m.instruments.GetExtendedInstrument(ctx, p.Data.PaymentInstrumentID, &domain.InstrumentQueryParams{
			Partner:  p.Data.Partner,
			Country:  p.Data.Country,
			Language: p.Data.Language,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: p.ExposedFlags, ExclusionFlagFormat: SafetyNetGetExtendedPIFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure {
		return m.sign(safetyNetSession(p.Data)), nil
	}

	if !isChallengeable(instrument) {
		ps := &domain.PaymentSession{
			PaymentSessionData:  *p.Data,
			ID:                  uuid.NewString(),
			IsChallengeRequired: false,
			ChallengeStatus:     domain.ChallengeStatusNotApplicable,
		}
		return m.sign(ps), nil
	}

	// Ownership check: unlike the extended view, the account-scoped
	// lookup refuses instruments the account does not own. Its
	// failures are caller errors and propagate.
	if err := m.CheckOwnership(ctx, p.AccountID, p.Data.PaymentInstrumentID, &domain.InstrumentQueryParams{
		Partner:           p.Data.Partner,
		BillableAccountID: p.Data.BillableAccountID,
		ClassicProduct:    p.Data.ClassicProduct,
	}); err != nil {
		return nil, err
	}

	in := selectionInput{
		Instrument:      instrument,
		Data:            p.Data,
		Flags:           p.ExposedFlags,
		TestCtx:         p.TestContext,
		PartnerSettings: p.PartnerSettings,
	}
	versions := resolveChallengeVersions(in)
	challengeType := decideChallengeType(in, versions)

	// Allocate the backend session id.
	var backendSession *domain.SessionResponse
	hadFailure, err = m.safetyNet.Execute(ctx, "CreatePayerAuthSession", traceID, func(ctx context.Context) error {
		var innerErr error
		backendSession, innerErr = m.payerAuth.CreateSession(ctx, sessionRequestFromData(p, instrument, challengeType))
		return innerErr
	}, SafetyNetOptions{ExposedFlags: p.ExposedFlags, ExclusionFlagFormat: SafetyNetCreateSessionFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure || backendSession == nil || backendSession.SessionID == "" {
		return m.sign(safetyNetSession(p.Data)), nil
	}

	stored := m.newStoredSession(backendSession.SessionID, p, instrument, challengeType)

	hadFailure, err = m.safetyNet.Execute(ctx, "StoreSession", traceID, func(ctx context.Context) error {
		return m.store.Create(ctx, stored.ID, stored)
	}, SafetyNetOptions{ExposedFlags: p.ExposedFlags, ExclusionFlagFormat: SafetyNetStoreSessionFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure {
		return m.sign(safetyNetSession(p.Data)), nil
	}

	if hasFlag(p.ExposedFlags, FlagEnableInstrumentSession) {
		m.upsertInstrumentSession(ctx, traceID, stored, instrument)
	}

	if m.metrics != nil {
		m.metrics.SessionsCreated.WithLabelValues(string(challengeType), string(p.DeviceChannel)).Inc()
	}

	// MOTO and rewards redemptions never challenge the customer: run
	// the bypass authenticate against the backend and finish here.
	if p.Data.IsMOTO || p.Data.RedeemRewards {
		return m.bypassAuthenticate(ctx, traceID, stored)
	}

	return m.signedView(stored), nil
}

// sessionRequestFromData maps the creation payload onto the backend
// session contract.
func sessionRequestFromData(p CreateSessionParams, instrument *domain.PaymentInstrument, challengeType domain.ChallengeType) *domain.SessionRequest {
	return &domain.SessionRequest{
		AccountID:                  p.AccountID,
		PaymentInstrumentID:        p.Data.PaymentInstrumentID,
		PaymentInstrumentAccountID: instrument.AccountID,
		Partner:                    p.Data.Partner,
		Amount:                     p.Data.Amount.String(),
		Currency:                   p.Data.Currency,
		Country:                    p.Data.Country,
		HasPreOrder:                p.Data.HasPreOrder,
		IsLegacy:                   p.Data.IsLegacy,
		IsMOTO:                     p.Data.IsMOTO,
		ThreeDSecureScenario:       p.Data.ChallengeScenario,
		PaymentMethodFamily:        instrument.PaymentMethod.Family,
		PaymentMethodType:          instrument.PaymentMethod.Type,
		DeviceChannel:              p.DeviceChannel,
		IsChallengeRequired:        challengeType != domain.ChallengeTypeNone,
		PurchaseOrderID:            p.Data.PurchaseOrderID,
		UserID:                     p.UserID,
		IsPoints:                   p.Data.RedeemRewards,
		RewardsPoints:              p.Data.RewardsPoints,
	}
}

func (m *Manager) newStoredSession(id string, p CreateSessionParams, instrument *domain.PaymentInstrument, challengeType domain.ChallengeType) *domain.StoredPaymentSession {
	status := domain.ChallengeStatusUnknown
	if challengeType == domain.ChallengeTypeNone {
		status = domain.ChallengeStatusNotApplicable
	}
	return &domain.StoredPaymentSession{
		ID:                         id,
		AccountID:                  p.AccountID,
		PaymentInstrumentID:        p.Data.PaymentInstrumentID,
		PaymentInstrumentAccountID: instrument.AccountID,
		BillableAccountID:          p.Data.BillableAccountID,
		CommercialAccountID:        p.Data.CommercialAccountID,
		ClassicProduct:             p.Data.ClassicProduct,
		EmailAddress:               p.EmailAddress,
		Language:                   p.Data.Language,
		Partner:                    p.Data.Partner,
		Amount:                     p.Data.Amount,
		Currency:                   p.Data.Currency,
		Country:                    p.Data.Country,
		HasPreOrder:                p.Data.HasPreOrder,
		IsMOTO:                     p.Data.IsMOTO,
		IsLegacy:                   p.Data.IsLegacy,
		RedeemRewards:              p.Data.RedeemRewards,
		RewardsPoints:              p.Data.RewardsPoints,
		PurchaseOrderID:            p.Data.PurchaseOrderID,
		UserID:                     p.UserID,
		ChallengeScenario:          p.Data.ChallengeScenario,
		ChallengeWindowSize:        p.Data.ChallengeWindowSize,
		DeviceChannel:              p.DeviceChannel,
		PaymentMethodFamily:        instrument.PaymentMethod.Family,
		PaymentMethodType:          instrument.PaymentMethod.Type,
		PiRequiresAuthentication:   p.Data.PiRequiresAuthentication,
		IsChallengeRequired:        challengeType != domain.ChallengeTypeNone,
		ChallengeStatus:            status,
		ChallengeType:              challengeType,
		ExposedFlags:               p.ExposedFlags,
	}
}

// upsertInstrumentSession records the instrument-to-session link as a
// side effect for downstream consumers. Failures never block.
func (m *Manager) upsertInstrumentSession(ctx context.Context, traceID string, stored *domain.StoredPaymentSession, instrument *domain.PaymentInstrument) {
	doc := &domain.PaymentInstrumentSession{
		ID:                instrumentSessionPrefix + stored.PaymentInstrumentID,
		AccountID:         stored.AccountID,
		SessionID:         stored.ID,
		RequiredChallenge: instrument.Details.RequiredChallenge,
	}
	m.safetyNet.Execute(ctx, "UpsertInstrumentSession", traceID, func(ctx context.Context) error {
		return m.store.Upsert(ctx, doc.ID, doc)
	}, SafetyNetOptions{})
}

// bypassAuthenticate runs the backend authenticate leg for flows that
// never challenge the customer (MOTO, rewards redemption).
func (m *Manager) bypassAuthenticate(ctx context.Context, traceID string, stored *domain.StoredPaymentSession) (*domain.PaymentSession, error) {
	var auth *domain.AuthenticationResponse
	hadFailure, err := m.safetyNet.Execute(ctx, "BypassAuthenticate", traceID, func(ctx context.Context) error {
		var innerErr error
		auth, innerErr = m.payerAuth.Authenticate(ctx, &domain.AuthenticationRequest{
			SessionID:                 stored.ID,
			AccountID:                 stored.AccountID,
			MethodCompletionIndicator: domain.MethodUnavailable,
			MessageVersion:            m.cfg.DefaultMessageVersion,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetMotoAuthFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure {
		auth = safetyNetAuthenticationResponse()
		stored.IsSystemError = true
	}

	stored.TransactionStatus = auth.TransactionStatus
	stored.TransactionStatusReason = auth.TransactionStatusReason
	if stored.IsMOTO {
		stored.ChallengeStatus = domain.ChallengeStatusByPassed
	} else {
		stored.ChallengeStatus = domain.ChallengeStatusNotApplicable
	}
	stored.IsChallengeRequired = false

	m.postProcessOnSuccess(ctx, traceID, stored)
	m.recordOutcome("CreatePaymentSession", stored.ChallengeStatus)
	return m.signedView(stored), nil
}

// GetThreeDSMethodURL resolves whether the browser must run the hidden
// ACS fingerprinting step before authentication. When fingerprinting is
// skipped or unavailable the manager proceeds straight to the
// authenticate leg.
func (m *Manager) GetThreeDSMethodURL(ctx context.Context, sessionID string) (*BrowserFlowContext, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored.ChallengeStatus.IsTerminal() {
		return newTerminalContext(m.signedView(stored)), nil
	}

	if stored.HasExposedFlag(FlagSkipFingerprint) {
		return m.authenticateBrowser(ctx, traceID, stored, domain.MethodNotCompleted)
	}

	var method *domain.MethodData
	hadFailure, err := m.safetyNet.Execute(ctx, "GetThreeDSMethodURL", traceID, func(ctx context.Context) error {
		var innerErr error
		method, innerErr = m.payerAuth.GetThreeDSMethodURL(ctx, &domain.SessionRequest{
			AccountID:           stored.AccountID,
			PaymentInstrumentID: stored.PaymentInstrumentID,
			Partner:             stored.Partner,
			Currency:            stored.Currency,
			Country:             stored.Country,
			DeviceChannel:       stored.DeviceChannel,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetWebAuthFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure || method == nil || method.ThreeDSMethodURL == "" {
		return m.authenticateBrowser(ctx, traceID, stored, domain.MethodUnavailable)
	}

	stored.MethodData = method
	m.persistSession(ctx, traceID, stored)

	notification := fmt.Sprintf("%s/paymentSessions/%s/notifyThreeDSMethodCompleted",
		m.cfg.NotificationBaseURL, stored.ID)
	return newFingerprintContext(m.signedView(stored), method, notification), nil
}

// AuthenticateBrowser runs the browser-channel authenticate leg after
// the fingerprinting step reported the given completion indicator.
func (m *Manager) AuthenticateBrowser(ctx context.Context, sessionID string, indicator domain.ThreeDSMethodCompletionIndicator) (*BrowserFlowContext, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.authenticateBrowser(ctx, traceID, stored, indicator)
}

func (m *Manager) authenticateBrowser(ctx context.Context, traceID string, stored *domain.StoredPaymentSession, indicator domain.ThreeDSMethodCompletionIndicator) (*BrowserFlowContext, error) {
	if stored.ChallengeStatus.IsTerminal() {
		return newTerminalContext(m.signedView(stored)), nil
	}

	req := &domain.AuthenticationRequest{
		SessionID:                 stored.ID,
		AccountID:                 stored.AccountID,
		BrowserInfo:               stored.BrowserInfo,
		MethodCompletionIndicator: indicator,
		MessageVersion:            m.cfg.DefaultMessageVersion,
		ChallengeNotificationURL: fmt.Sprintf("%s/paymentSessions/%s/notifyThreeDSChallengeCompleted",
			m.cfg.NotificationBaseURL, stored.ID),
	}
	if stored.MethodData != nil {
		req.ThreeDSServerTransactionID = stored.MethodData.ThreeDSServerTransactionID
	}

	var auth *domain.AuthenticationResponse
	hadFailure, err := m.safetyNet.Execute(ctx, "AuthenticateBrowser", traceID, func(ctx context.Context) error {
		var innerErr error
		auth, innerErr = m.payerAuth.Authenticate(ctx, req)
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetWebAuthFormat})
	if err != nil {
		return nil, err
	}
	if hadFailure {
		auth = safetyNetAuthenticationResponse()
		stored.IsSystemError = true
	}

	stored.TransactionStatus = auth.TransactionStatus
	stored.TransactionStatusReason = auth.TransactionStatusReason

	mapped := m.statusMapper.MapAuthenticationStatus(auth.TransactionStatus, stored.IsMOTO,
		[]string{auth.TransactionStatusReason}, stored.ExposedFlags)
	if mapped != domain.ChallengeStatusUnknown {
		stored.ChallengeStatus = mapped
		if mapped.IsAuthenticationVerified() {
			m.postProcessOnSuccess(ctx, traceID, stored)
		} else {
			m.persistSession(ctx, traceID, stored)
		}
		m.recordOutcome("Authenticate", mapped)
		return newTerminalContext(m.signedView(stored)), nil
	}

	// The issuer wants a challenge: keep the raw response, the
	// completion leg needs it.
	stored.AuthenticationResponse = auth
	m.persistSession(ctx, traceID, stored)
	return newAcsChallengeContext(m.signedView(stored), auth, stored.ChallengeWindowSize), nil
}

// AuthenticateApp runs the app-channel (SDK) authenticate leg.
func (m *Manager) AuthenticateApp(ctx context.Context, accountID, sessionID string, req *domain.ClientAuthenticationRequest) (*domain.ClientAuthenticationResponse, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := ValidateSettingsVersion(req, stored.ExposedFlags); err != nil {
		return nil, err
	}

	if stored.ChallengeStatus.IsTerminal() {
		// Repeat app-auth calls on a settled session still re-attest
		// the outcome; the SDK may have missed the first result.
		m.sendAttestation(ctx, traceID, stored)
		return &domain.ClientAuthenticationResponse{
			ChallengeStatus: stored.ChallengeStatus,
			IsSystemError:   stored.IsSystemError,
		}, nil
	}

	stored.DeviceChannel = domain.DeviceChannelAppBased
	messageVersion := req.MessageVersion
	if messageVersion == "" {
		messageVersion = m.cfg.DefaultMessageVersion
	}

	var auth *domain.AuthenticationResponse
	hadFailure, snErr := m.safetyNet.Execute(ctx, "AuthenticateApp", traceID, func(ctx context.Context) error {
		var innerErr error
		auth, innerErr = m.payerAuth.Authenticate(ctx, &domain.AuthenticationRequest{
			SessionID:             stored.ID,
			AccountID:             accountID,
			MessageVersion:        messageVersion,
			SdkAppID:              req.SdkAppID,
			SdkEncryptedData:      req.SdkEncryptedData,
			SdkEphemeralPublicKey: req.SdkEphemeralPublicKey,
			SdkMaxTimeout:         req.SdkMaxTimeout,
			SdkInterface:          req.SdkInterface,
			SdkReferenceNumber:    req.SdkReferenceNumber,
			SdkTransactionID:      req.SdkTransactionID,
			SdkUIType:             req.SdkUIType,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetAppAuthFormat})
	if snErr != nil {
		return nil, snErr
	}
	if hadFailure {
		stored.ChallengeStatus = domain.ChallengeStatusByPassed
		stored.IsSystemError = true
		m.persistSession(ctx, traceID, stored)
		m.sendAttestation(ctx, traceID, stored)
		m.recordOutcome("AuthenticateApp", stored.ChallengeStatus)
		return safetyNetClientAuthenticationResponse(), nil
	}

	stored.TransactionStatus = auth.TransactionStatus
	stored.TransactionStatusReason = auth.TransactionStatusReason

	mapped := m.statusMapper.MapAuthenticationStatus(auth.TransactionStatus, stored.IsMOTO,
		[]string{auth.TransactionStatusReason}, stored.ExposedFlags)
	if mapped != domain.ChallengeStatusUnknown {
		stored.ChallengeStatus = mapped
		if mapped.IsAuthenticationVerified() {
			m.postProcessOnSuccess(ctx, traceID, stored)
		} else {
			m.persistSession(ctx, traceID, stored)
		}
		m.sendAttestation(ctx, traceID, stored)
		m.recordOutcome("AuthenticateApp", mapped)
		return &domain.ClientAuthenticationResponse{
			EnrollmentStatus: auth.EnrollmentStatus,
			ChallengeStatus:  mapped,
			MessageVersion:   auth.MessageVersion,
			IsSystemError:    stored.IsSystemError,
		}, nil
	}

	stored.AuthenticationResponse = auth
	m.persistSession(ctx, traceID, stored)
	m.sendAttestation(ctx, traceID, stored)
	return &domain.ClientAuthenticationResponse{
		EnrollmentStatus:           auth.EnrollmentStatus,
		ChallengeStatus:            domain.ChallengeStatusUnknown,
		AcsTransactionID:           auth.AcsTransactionID,
		AcsSignedContent:           auth.AcsSignedContent,
		AcsRenderingType:           auth.AcsRenderingType,
		AcsOperatorID:              auth.AcsOperatorID,
		AcsReferenceNumber:         auth.AcsReferenceNumber,
		ThreeDSServerTransactionID: auth.ThreeDSServerTransactionID,
		DsReferenceNumber:          auth.DsReferenceNumber,
		MessageVersion:             auth.MessageVersion,
		CardHolderInfo:             auth.CardHolderInfo,
	}, nil
}

// AuthenticateThreeDSOne runs the legacy 3DS1 authenticate leg with the
// customer's CVV token.
func (m *Manager) AuthenticateThreeDSOne(ctx context.Context, sessionID, cvvToken string) (*BrowserFlowContext, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored.ChallengeStatus.IsTerminal() {
		return newTerminalContext(m.signedView(stored)), nil
	}

	var auth *domain.AuthenticationResponse
	hadFailure, snErr := m.safetyNet.Execute(ctx, "AuthenticateThreeDSOne", traceID, func(ctx context.Context) error {
		var innerErr error
		auth, innerErr = m.payerAuth.AuthenticateThreeDSOne(ctx, &domain.AuthenticationRequest{
			SessionID: stored.ID,
			AccountID: stored.AccountID,
			CvvToken:  cvvToken,
			UserID:    stored.UserID,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetWebAuthFormat})
	if snErr != nil {
		return nil, snErr
	}
	if hadFailure {
		auth = safetyNetAuthenticationResponse()
		stored.IsSystemError = true
	}

	stored.TransactionStatus = auth.TransactionStatus
	stored.TransactionStatusReason = auth.TransactionStatusReason

	switch auth.TransactionStatus {
	case domain.TransactionStatusChallenge:
		stored.AuthenticationResponse = auth
		m.persistSession(ctx, traceID, stored)
		return newAcsChallengeContext(m.signedView(stored), auth, stored.ChallengeWindowSize), nil
	case domain.TransactionStatusUnavailable:
		stored.ChallengeStatus = domain.ChallengeStatusFailed
	case domain.TransactionStatusRejected:
		if stored.IsSystemError {
			stored.ChallengeStatus = domain.ChallengeStatusInternalServerError
		} else {
			stored.ChallengeStatus = domain.ChallengeStatusFailed
		}
	default:
		stored.ChallengeStatus = domain.ChallengeStatusSucceeded
	}

	if stored.ChallengeStatus.IsAuthenticationVerified() {
		m.postProcessOnSuccess(ctx, traceID, stored)
	} else {
		m.persistSession(ctx, traceID, stored)
	}
	m.recordOutcome("AuthenticateThreeDSOne", stored.ChallengeStatus)
	return newTerminalContext(m.signedView(stored)), nil
}

// AuthenticateRedirectionThreeDSOne replays the stored ACS payload for
// the full-page redirection variant of the 3DS1 flow, recording where
// the browser should land afterwards.
func (m *Manager) AuthenticateRedirectionThreeDSOne(ctx context.Context, sessionID, successURL, failureURL string) (*BrowserFlowContext, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored.AuthenticationResponse == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeSessionInvalid,
			"session has no pending authentication to redirect")
	}

	stored.SuccessURL = successURL
	stored.FailureURL = failureURL
	m.persistSession(ctx, traceID, stored)

	ctxOut := newAcsChallengeContext(m.signedView(stored), stored.AuthenticationResponse, stored.ChallengeWindowSize)
	ctxOut.FormFullPageRedirect = true
	return ctxOut, nil
}

// CompleteThreeDSChallenge finishes a 3DS2 challenge: fetch the result
// from the backend, map it, persist, and attest. The attestation is
// sent exactly once per call, on every branch.
func (m *Manager) CompleteThreeDSChallenge(ctx context.Context, accountID, sessionID string) (*domain.PaymentSession, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Repeating a finished completion is idempotent; only the
	// attestation is re-sent, which the collaborator tolerates.
	if stored.ChallengeStatus.IsTerminal() {
		m.sendAttestation(ctx, traceID, stored)
		return m.signedView(stored), nil
	}

	var completion *domain.CompletionResponse
	hadFailure, snErr := m.safetyNet.Execute(ctx, "CompleteThreeDSChallenge", traceID, func(ctx context.Context) error {
		var innerErr error
		completion, innerErr = m.payerAuth.CompleteChallenge(ctx, &domain.CompletionRequest{
			SessionID: stored.ID,
			AccountID: accountID,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetCompletionFormat})
	if snErr != nil {
		return nil, snErr
	}
	if hadFailure {
		completion = safetyNetCompletionResponse()
		stored.IsSystemError = true
	}

	stored.TransactionStatus = completion.TransactionStatus
	stored.TransactionStatusReason = completion.TransactionStatusReason
	stored.ChallengeCancelIndicator = completion.ChallengeCancelIndicator

	mapped := m.statusMapper.MapCompletionStatus(completion.TransactionStatus,
		completion.TransactionStatusReason, completion.ChallengeCancelIndicator, stored.ExposedFlags)
	stored.ChallengeStatus = mapped

	if mapped.IsAuthenticationVerified() {
		m.postProcessOnSuccess(ctx, traceID, stored)
	} else {
		m.persistSession(ctx, traceID, stored)
	}
	m.sendAttestation(ctx, traceID, stored)
	m.recordOutcome("CompleteThreeDSChallenge", mapped)
	return m.signedView(stored), nil
}

// CompleteThreeDSOneChallenge finishes a legacy 3DS1 challenge. The
// outcome mapping is the hardcoded 3DS1 switch, not the rule table.
func (m *Manager) CompleteThreeDSOneChallenge(ctx context.Context, accountID, sessionID string, authParams map[string]string) (*domain.PaymentSession, error) {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if stored.ChallengeStatus.IsTerminal() {
		m.sendAttestation(ctx, traceID, stored)
		return m.signedView(stored), nil
	}

	var completion *domain.CompletionResponse
	hadFailure, snErr := m.safetyNet.Execute(ctx, "CompleteThreeDSOneChallenge", traceID, func(ctx context.Context) error {
		var innerErr error
		completion, innerErr = m.payerAuth.CompleteThreeDSOneChallenge(ctx, &domain.CompletionRequest{
			SessionID:               stored.ID,
			AccountID:               accountID,
			AuthorizationParameters: authParams,
		})
		return innerErr
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetCompletionFormat})
	if snErr != nil {
		return nil, snErr
	}
	if hadFailure {
		completion = safetyNetCompletionResponse()
		stored.IsSystemError = true
	}

	stored.TransactionStatus = completion.TransactionStatus
	stored.TransactionStatusReason = completion.TransactionStatusReason
	stored.ChallengeCancelIndicator = completion.ChallengeCancelIndicator

	switch completion.TransactionStatus {
	case domain.TransactionStatusUnavailable:
		stored.ChallengeStatus = domain.ChallengeStatusFailed
	case domain.TransactionStatusRejected:
		if stored.IsSystemError {
			stored.ChallengeStatus = domain.ChallengeStatusInternalServerError
		} else {
			stored.ChallengeStatus = domain.ChallengeStatusFailed
		}
	case domain.TransactionStatusDeclined:
		stored.ChallengeStatus = FallbackCompletionStatus(completion.TransactionStatus,
			completion.TransactionStatusReason, completion.ChallengeCancelIndicator)
	default:
		stored.ChallengeStatus = domain.ChallengeStatusSucceeded
	}

	if stored.ChallengeStatus.IsAuthenticationVerified() {
		m.postProcessOnSuccess(ctx, traceID, stored)
	} else {
		m.persistSession(ctx, traceID, stored)
	}
	m.sendAttestation(ctx, traceID, stored)
	m.recordOutcome("CompleteThreeDSOneChallenge", stored.ChallengeStatus)
	return m.signedView(stored), nil
}

// TryGetPaymentSession returns the session, or nil when it does not
// exist. Backend failures still propagate.
func (m *Manager) TryGetPaymentSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.signedView(stored), nil
}

// CheckOwnership verifies the account owns the instrument, translating
// the backend's error vocabulary into caller errors.
func (m *Manager) CheckOwnership(ctx context.Context, accountID, instrumentID string, params *domain.InstrumentQueryParams) error {
	_, err := m.instruments.GetInstrument(ctx, accountID, instrumentID, params)
	if err == nil {
		return nil
	}

	if svcErr, ok := pkgerrors.AsServiceError(err); ok {
		if strings.EqualFold(svcErr.Code, string(domain.ErrorCodeAccountPINotFound)) {
			return domain.WrapError(domain.ErrorCodeInstrumentNotFound,
				"payment instrument not found for account", err)
		}
		if svcErr.Inner != nil &&
			strings.EqualFold(svcErr.Inner.Code, string(domain.ErrorCodeInvalidQueryParameter)) &&
			strings.EqualFold(svcErr.Inner.Target, "accountId") {
			return domain.WrapError(domain.ErrorCodeInvalidAccountID, "account id is invalid", err)
		}
	}
	return err
}

// LinkSession links the stored session to its payment instrument so a
// later attach can observe the authentication outcome.
func (m *Manager) LinkSession(ctx context.Context, sessionID string) error {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	m.linkSessionToInstrument(ctx, traceID, stored)
	return nil
}

// UpdateSessionBrowserInfo records the client browser attributes needed
// for the authenticate leg.
func (m *Manager) UpdateSessionBrowserInfo(ctx context.Context, sessionID string, info *domain.BrowserInfo) error {
	traceID := uuid.NewString()
	stored, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	stored.BrowserInfo = info
	if info != nil && info.ChallengeWindowSize != "" {
		stored.ChallengeWindowSize = info.ChallengeWindowSize
	}
	m.persistSession(ctx, traceID, stored)
	return nil
}

// loadSession fetches the stored session aggregate.
func (m *Manager) loadSession(ctx context.Context, sessionID string) (*domain.StoredPaymentSession, error) {
	var stored domain.StoredPaymentSession
	if err := m.store.Get(ctx, sessionID, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// persistSession writes the session back through the safety net;
// storage failures are suppressed like any other backend fault.
func (m *Manager) persistSession(ctx context.Context, traceID string, stored *domain.StoredPaymentSession) {
	m.safetyNet.Execute(ctx, "UpdateSession", traceID, func(ctx context.Context) error {
		return m.store.Update(ctx, stored.ID, stored)
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetUpdateSessionFormat})
}

// sendAttestation reports the customer's challenge outcome to the
// transaction data service.
func (m *Manager) sendAttestation(ctx context.Context, traceID string, stored *domain.StoredPaymentSession) {
	verified := stored.ChallengeStatus.IsAuthenticationVerified()
	m.safetyNet.Execute(ctx, "UpdateChallengeAttestation", traceID, func(ctx context.Context) error {
		return m.transactionData.UpdateChallengeAttestation(ctx, stored.AccountID, stored.ID, verified)
	}, SafetyNetOptions{})
}

// linkSessionToInstrument attaches the session id to the instrument.
// Failure never blocks the flow.
func (m *Manager) linkSessionToInstrument(ctx context.Context, traceID string, stored *domain.StoredPaymentSession) {
	m.safetyNet.Execute(ctx, "LinkSessionToInstrument", traceID, func(ctx context.Context) error {
		return m.instruments.LinkSession(ctx, stored.AccountID, stored.PaymentInstrumentID, stored.ID, &domain.InstrumentQueryParams{
			Partner:           stored.Partner,
			BillableAccountID: stored.BillableAccountID,
			ClassicProduct:    stored.ClassicProduct,
		})
	}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetLinkSessionFormat})
}

// postProcessOnSuccess runs the side effects of a verified challenge:
// an optional instrument validation for pre-order or zero-amount
// transactions (whose failure downgrades the outcome), the
// session-to-instrument link, and the final persist.
func (m *Manager) postProcessOnSuccess(ctx context.Context, traceID string, stored *domain.StoredPaymentSession) {
	if stored.HasPreOrder || stored.Amount.IsZero() {
		var result *domain.ValidationResult
		hadFailure, _ := m.safetyNet.Execute(ctx, "ValidateInstrument", traceID, func(ctx context.Context) error {
			var innerErr error
			result, innerErr = m.instruments.ValidateInstrument(ctx, stored.AccountID, stored.PaymentInstrumentID,
				&domain.ValidationParameters{SessionID: stored.ID})
			return innerErr
		}, SafetyNetOptions{ExposedFlags: stored.ExposedFlags, ExclusionFlagFormat: SafetyNetValidateInstrumentFormat})
		if !hadFailure && result != nil && strings.EqualFold(result.Status, "failed") {
			stored.ChallengeStatus = domain.ChallengeStatusFailed
		}
	}

	m.linkSessionToInstrument(ctx, traceID, stored)
	m.persistSession(ctx, traceID, stored)
}
