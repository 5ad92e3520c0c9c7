package ports

import "context"

// SecretManager retrieves named secrets from a secret management
// backend. Implementations handle authentication with the backend and
// short-lived caching; the session signing key is the primary consumer.
type SecretManager interface {
	GetSecret(ctx context.Context, name string) (string, error)
}
