package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// SessionSigner computes the tamper-evident signature attached to every
// outbound payment session. The signature covers the fields a client
// could profit from replaying under a different outcome, so it must be
// recomputed on every projection of the session, never copied forward.
type SessionSigner struct {
	key []byte
}

// NewSessionSigner creates a signer over the given HMAC key.
func NewSessionSigner(key []byte) *SessionSigner {
	return &SessionSigner{key: key}
}

// canonical builds the signed field string. Field order is part of the
// signature contract; changing it invalidates all outstanding sessions.
func canonical(s *domain.PaymentSession) string {
	parts := []string{
		s.ID,
		s.PaymentInstrumentID,
		string(s.ChallengeStatus),
		string(s.ChallengeType),
		fmt.Sprintf("%t", s.IsChallengeRequired),
		s.Amount.String(),
		s.Currency,
		s.Country,
	}
	return strings.Join(parts, "|")
}

// Sign computes the hex-encoded HMAC-SHA256 signature for the session.
func (sg *SessionSigner) Sign(s *domain.PaymentSession) string {
	mac := hmac.New(sha256.New, sg.key)
	mac.Write([]byte(canonical(s)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented signature against the session fields using
// a constant-time comparison.
func (sg *SessionSigner) Verify(s *domain.PaymentSession, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, sg.key)
	mac.Write([]byte(canonical(s)))
	return hmac.Equal(mac.Sum(nil), expected)
}
