package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
)

// localSecretManager implements SecretManager using environment variables.
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	prefix string
	logger ports.Logger
}

// NewLocalSecretManager creates a secret manager that resolves secrets
// from environment variables, uppercasing the name and replacing
// separators (e.g. "challenge/signing-key" => "{PREFIX}CHALLENGE_SIGNING_KEY").
func NewLocalSecretManager(prefix string, logger ports.Logger) ports.SecretManager {
	return &localSecretManager{prefix: prefix, logger: logger}
}

func (l *localSecretManager) GetSecret(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(name)
	key = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	key = l.prefix + key

	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %s not found in environment (%s)", name, key)
	}
	return value, nil
}
