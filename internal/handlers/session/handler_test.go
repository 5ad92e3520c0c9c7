package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercepay/payment-challenge-service/internal/adapters/sessionstore"
	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	"github.com/commercepay/payment-challenge-service/internal/handlers/session"
	"github.com/commercepay/payment-challenge-service/internal/services/challenge"
	"github.com/commercepay/payment-challenge-service/pkg/security"
	"github.com/shopspring/decimal"
)

// stubAuthGateway answers every backend call with canned responses.
type stubAuthGateway struct {
	session    *domain.SessionResponse
	method     *domain.MethodData
	auth       *domain.AuthenticationResponse
	completion *domain.CompletionResponse
}

func (s *stubAuthGateway) CreateSession(ctx context.Context, req *domain.SessionRequest) (*domain.SessionResponse, error) {
	return s.session, nil
}

func (s *stubAuthGateway) GetThreeDSMethodURL(ctx context.Context, req *domain.SessionRequest) (*domain.MethodData, error) {
	return s.method, nil
}

func (s *stubAuthGateway) Authenticate(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error) {
	return s.auth, nil
}

func (s *stubAuthGateway) AuthenticateThreeDSOne(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error) {
	return s.auth, nil
}

func (s *stubAuthGateway) CompleteChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return s.completion, nil
}

func (s *stubAuthGateway) CompleteThreeDSOneChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return s.completion, nil
}

type stubInstrumentGateway struct {
	instrument *domain.PaymentInstrument
}

func (s *stubInstrumentGateway) GetInstrument(ctx context.Context, accountID, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error) {
	return s.instrument, nil
}

func (s *stubInstrumentGateway) GetExtendedInstrument(ctx context.Context, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error) {
	return s.instrument, nil
}

func (s *stubInstrumentGateway) ValidateInstrument(ctx context.Context, accountID, instrumentID string, req *domain.ValidationParameters) (*domain.ValidationResult, error) {
	return &domain.ValidationResult{Status: "success"}, nil
}

func (s *stubInstrumentGateway) LinkSession(ctx context.Context, accountID, instrumentID, sessionID string, params *domain.InstrumentQueryParams) error {
	return nil
}

type stubTransactionData struct{}

func (stubTransactionData) UpdateChallengeAttestation(ctx context.Context, accountID, sessionID string, verified bool) error {
	return nil
}

type silentLogger struct{}

func (silentLogger) Info(msg string, fields ...ports.Field)  {}
func (silentLogger) Error(msg string, fields ...ports.Field) {}
func (silentLogger) Warn(msg string, fields ...ports.Field)  {}
func (silentLogger) Debug(msg string, fields ...ports.Field) {}

func newTestServer(t *testing.T, store *sessionstore.MemoryStore, auth *stubAuthGateway) *httptest.Server {
	t.Helper()
	mgr := challenge.NewManager(
		store,
		auth,
		&stubInstrumentGateway{instrument: &domain.PaymentInstrument{
			ID:        "pi-001",
			AccountID: "acct-owner",
			PaymentMethod: domain.PaymentMethod{
				Family: domain.FamilyCreditCard,
				Type:   "visa",
			},
			Details: domain.PaymentInstrumentDetails{RequiredChallenge: []string{"3ds2"}},
		}},
		stubTransactionData{},
		security.NewSessionSigner([]byte("handler-test-key")),
		challenge.NewStatusMapper(challenge.DefaultStatusRules),
		silentLogger{},
		nil,
		challenge.Config{
			PSD2Enabled:         true,
			NotificationBaseURL: "https://pay.contoso.example",
		},
	)

	mux := http.NewServeMux()
	session.NewHandler(mgr, silentLogger{}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func seededStore(t *testing.T) *sessionstore.MemoryStore {
	t.Helper()
	store := sessionstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), "sess-001", &domain.StoredPaymentSession{
		ID:                  "sess-001",
		AccountID:           "acct-001",
		PaymentInstrumentID: "pi-001",
		Partner:             "webblends",
		Amount:              decimal.NewFromInt(50),
		Currency:            "EUR",
		Country:             "DE",
		ChallengeScenario:   domain.ScenarioPaymentTransaction,
		ChallengeStatus:     domain.ChallengeStatusUnknown,
		ChallengeType:       domain.ChallengeTypePSD2,
		IsChallengeRequired: true,
	}))
	return store
}

func TestHandler_CreateSession(t *testing.T) {
	srv := newTestServer(t, sessionstore.NewMemoryStore(), &stubAuthGateway{
		session: &domain.SessionResponse{SessionID: "sess-new"},
	})

	body := `{
		"piid": "pi-001",
		"partner": "webblends",
		"amount": "49.99",
		"currency": "EUR",
		"country": "DE",
		"challengeScenario": "PaymentTransaction",
		"deviceChannel": "browser"
	}`
	resp, err := http.Post(srv.URL+"/api/v1/accounts/acct-001/paymentSessions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ps domain.PaymentSession
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ps))
	assert.Equal(t, "sess-new", ps.ID)
	assert.True(t, ps.IsChallengeRequired)
	assert.NotEmpty(t, ps.Signature)
}

func TestHandler_CreateSession_ValidationFailure(t *testing.T) {
	srv := newTestServer(t, sessionstore.NewMemoryStore(), &stubAuthGateway{})

	// Missing currency and country.
	body := `{"piid": "pi-001", "partner": "webblends", "challengeScenario": "PaymentTransaction"}`
	resp, err := http.Post(srv.URL+"/api/v1/accounts/acct-001/paymentSessions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "InvalidRequestData", errResp.ErrorCode)
}

func TestHandler_GetSession_NotFound(t *testing.T) {
	srv := newTestServer(t, sessionstore.NewMemoryStore(), &stubAuthGateway{})

	resp, err := http.Get(srv.URL + "/api/v1/paymentSessions/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_GetSession(t *testing.T) {
	srv := newTestServer(t, seededStore(t), &stubAuthGateway{})

	resp, err := http.Get(srv.URL + "/api/v1/paymentSessions/sess-001")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ps domain.PaymentSession
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ps))
	assert.Equal(t, "sess-001", ps.ID)
	assert.Equal(t, domain.ChallengeStatusUnknown, ps.ChallengeStatus)
}

func TestHandler_LinkSession(t *testing.T) {
	srv := newTestServer(t, seededStore(t), &stubAuthGateway{})

	resp, err := http.Post(srv.URL+"/api/v1/paymentSessions/sess-001/linkSession", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHandler_NotifyThreeDSMethodCompleted(t *testing.T) {
	srv := newTestServer(t, seededStore(t), &stubAuthGateway{
		auth: &domain.AuthenticationResponse{TransactionStatus: domain.TransactionStatusApproved},
	})

	resp, err := http.Post(srv.URL+"/api/v1/paymentSessions/sess-001/notifyThreeDSMethodCompleted",
		"application/x-www-form-urlencoded", strings.NewReader("threeDSMethodData=eyJ0ZXN0IjoidHJ1ZSJ9"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var flow challenge.BrowserFlowContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&flow))
	assert.False(t, flow.IsAcsChallengeRequired)
	assert.Equal(t, domain.ChallengeStatusSucceeded, flow.PaymentSession.ChallengeStatus)
}

func TestHandler_CompleteChallenge(t *testing.T) {
	srv := newTestServer(t, seededStore(t), &stubAuthGateway{
		completion: &domain.CompletionResponse{
			TransactionStatus:        domain.TransactionStatusDeclined,
			ChallengeCancelIndicator: domain.CancelledByCardHolder,
		},
	})

	resp, err := http.Post(srv.URL+"/api/v1/accounts/acct-001/paymentSessions/sess-001/notifyThreeDSChallengeCompleted",
		"application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ps domain.PaymentSession
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ps))
	assert.Equal(t, domain.ChallengeStatusCancelled, ps.ChallengeStatus)
}
