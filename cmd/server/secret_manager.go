package main

import (
	"context"
	"fmt"
	"os"

	"github.com/commercepay/payment-challenge-service/internal/adapters/secrets"
	"github.com/commercepay/payment-challenge-service/internal/config"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	"github.com/commercepay/payment-challenge-service/pkg/security"
)

// initSessionSigner resolves the session signing key from the
// configured secret backend and builds the signer.
//
// Supported backends (SIGNING_KEY_SOURCE):
//   - local: key read from environment variables (development only)
//   - vault: HashiCorp Vault KV engine (VAULT_ADDR, VAULT_TOKEN)
//   - aws:   AWS Secrets Manager (AWS_REGION plus the standard AWS
//     credential chain)
//
// The secret name is SIGNING_KEY_SECRET_NAME in all backends.
func initSessionSigner(ctx context.Context, cfg *config.Config, logger ports.Logger) (*security.SessionSigner, error) {
	secretManager, err := initSecretManager(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	key, err := secretManager.GetSecret(ctx, cfg.Signing.SecretName)
	if err != nil {
		return nil, fmt.Errorf("resolving signing key %q: %w", cfg.Signing.SecretName, err)
	}

	return security.NewSessionSigner([]byte(key)), nil
}

func initSecretManager(ctx context.Context, cfg *config.Config, logger ports.Logger) (ports.SecretManager, error) {
	switch cfg.Signing.Source {
	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Signing.VaultAddress)
		vaultCfg.Token = os.Getenv("VAULT_TOKEN")
		if cfg.Signing.VaultMountPath != "" {
			vaultCfg.MountPath = cfg.Signing.VaultMountPath
		}
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Signing.AWSRegion)
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "local":
		return secrets.NewLocalSecretManager("", logger), nil

	default:
		return nil, fmt.Errorf("unknown signing key source %q", cfg.Signing.Source)
	}
}
