package challenge

import (
	"github.com/google/uuid"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// Safety-net substitute responses. When a backend call fails and the
// failure is suppressed, these deterministic results keep the checkout
// moving instead of surfacing an error.

// safetyNetSession builds the substitute session returned when session
// creation cannot reach the backends: no challenge, fresh local id.
func safetyNetSession(data *domain.PaymentSessionData) *domain.PaymentSession {
	return &domain.PaymentSession{
		PaymentSessionData:  *data,
		ID:                  uuid.NewString(),
		IsChallengeRequired: false,
		ChallengeStatus:     domain.ChallengeStatusNotApplicable,
	}
}

// safetyNetAuthenticationResponse substitutes a frictionless approval
// for a failed authenticate call.
func safetyNetAuthenticationResponse() *domain.AuthenticationResponse {
	return &domain.AuthenticationResponse{
		EnrollmentStatus:  domain.EnrollmentStatusBypassed,
		TransactionStatus: domain.TransactionStatusApproved,
	}
}

// safetyNetCompletionResponse substitutes a completed challenge for a
// failed completion call.
func safetyNetCompletionResponse() *domain.CompletionResponse {
	return &domain.CompletionResponse{
		TransactionStatus:            domain.TransactionStatusApproved,
		ChallengeCompletionIndicator: "Y",
	}
}

// safetyNetClientAuthenticationResponse substitutes a bypassed outcome
// for a failed app-channel authenticate, flagging the system error so
// the SDK can report it.
func safetyNetClientAuthenticationResponse() *domain.ClientAuthenticationResponse {
	return &domain.ClientAuthenticationResponse{
		EnrollmentStatus: domain.EnrollmentStatusBypassed,
		ChallengeStatus:  domain.ChallengeStatusByPassed,
		IsSystemError:    true,
	}
}
