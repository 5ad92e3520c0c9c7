package ports

import (
	"context"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// InstrumentGateway talks to the payment instrument management service.
type InstrumentGateway interface {
	// GetInstrument fetches an instrument scoped to the owning account.
	// Used as the ownership check: a foreign instrument returns an
	// AccountPINotFound error.
	GetInstrument(ctx context.Context, accountID, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error)

	// GetExtendedInstrument fetches the cross-account extended view.
	GetExtendedInstrument(ctx context.Context, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error)

	// ValidateInstrument runs CVV-style validation against the instrument.
	ValidateInstrument(ctx context.Context, accountID, instrumentID string, req *domain.ValidationParameters) (*domain.ValidationResult, error)

	// LinkSession attaches a challenge session to the instrument so a
	// later attach or purchase can observe the authentication outcome.
	LinkSession(ctx context.Context, accountID, instrumentID, sessionID string, params *domain.InstrumentQueryParams) error
}
