package ports

import "context"

// TransactionDataGateway records customer challenge attestations against
// the transaction data service once a challenge reaches a verified state.
type TransactionDataGateway interface {
	UpdateChallengeAttestation(ctx context.Context, accountID, sessionID string, verified bool) error
}
