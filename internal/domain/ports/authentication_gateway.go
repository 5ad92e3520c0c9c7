package ports

import (
	"context"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// AuthenticationGateway talks to the payer authentication backend that
// fronts the 3DS server and the card network directory servers.
type AuthenticationGateway interface {
	// CreateSession allocates a backend session id for the payment.
	CreateSession(ctx context.Context, req *domain.SessionRequest) (*domain.SessionResponse, error)

	// GetThreeDSMethodURL asks the backend whether the issuer ACS
	// publishes a browser fingerprinting endpoint for the instrument.
	GetThreeDSMethodURL(ctx context.Context, req *domain.SessionRequest) (*domain.MethodData, error)

	// Authenticate runs the 3DS2 authentication leg.
	Authenticate(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error)

	// AuthenticateThreeDSOne runs the legacy 3DS1 authentication leg.
	AuthenticateThreeDSOne(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error)

	// CompleteChallenge reports the challenge result for a 3DS2 session.
	CompleteChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)

	// CompleteThreeDSOneChallenge reports the challenge result for a
	// legacy 3DS1 session, forwarding the ACS authorization parameters.
	CompleteThreeDSOneChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
}
