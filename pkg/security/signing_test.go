package security_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/pkg/security"
)

func testSession() *domain.PaymentSession {
	return &domain.PaymentSession{
		PaymentSessionData: domain.PaymentSessionData{
			PaymentInstrumentID: "pi-001",
			Amount:              decimal.NewFromFloat(25.99),
			Currency:            "EUR",
			Country:             "DE",
		},
		ID:                  "sess-001",
		IsChallengeRequired: true,
		ChallengeStatus:     domain.ChallengeStatusUnknown,
		ChallengeType:       domain.ChallengeTypePSD2,
	}
}

func TestSessionSigner_SignAndVerify(t *testing.T) {
	signer := security.NewSessionSigner([]byte("secret-key"))

	ps := testSession()
	sig := signer.Sign(ps)
	assert.NotEmpty(t, sig)
	assert.True(t, signer.Verify(ps, sig))
}

func TestSessionSigner_VerifyRejectsTamperedSession(t *testing.T) {
	signer := security.NewSessionSigner([]byte("secret-key"))

	ps := testSession()
	sig := signer.Sign(ps)

	ps.ChallengeStatus = domain.ChallengeStatusSucceeded
	assert.False(t, signer.Verify(ps, sig))
}

func TestSessionSigner_VerifyRejectsWrongKey(t *testing.T) {
	signer := security.NewSessionSigner([]byte("secret-key"))
	other := security.NewSessionSigner([]byte("different-key"))

	ps := testSession()
	assert.False(t, other.Verify(ps, signer.Sign(ps)))
}

func TestSessionSigner_SignatureIsDeterministic(t *testing.T) {
	signer := security.NewSessionSigner([]byte("secret-key"))

	a := signer.Sign(testSession())
	b := signer.Sign(testSession())
	assert.Equal(t, a, b)
}
