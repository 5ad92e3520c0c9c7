package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	PayerAuth       PayerAuthConfig
	Instruments     InstrumentsConfig
	TransactionData TransactionDataConfig
	Challenge       ChallengeConfig
	Signing         SigningConfig
	Logger          LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// PayerAuthConfig holds the payer authentication backend configuration
type PayerAuthConfig struct {
	BaseURL    string
	APIVersion string
	Timeout    int // request timeout in seconds
}

// InstrumentsConfig holds the payment instrument service configuration
type InstrumentsConfig struct {
	BaseURL string
	Timeout int
}

// TransactionDataConfig holds the transaction data service configuration
type TransactionDataConfig struct {
	BaseURL string
	Timeout int
}

// ChallengeConfig holds the challenge subsystem configuration
type ChallengeConfig struct {
	PSD2Enabled           bool
	NotificationBaseURL   string // externally reachable base for ACS callbacks
	DefaultMessageVersion string

	// StatusRules overrides the built-in status mapping rule table.
	// Empty means use the defaults compiled into the service.
	StatusRules []string

	// SessionTTLHours is how long an untouched session survives before
	// the expiry sweep removes it.
	SessionTTLHours int
}

// SigningConfig selects where the session signing key comes from.
// Source is one of: local, vault, aws.
type SigningConfig struct {
	Source     string
	SecretName string

	// Vault settings (Source == "vault")
	VaultAddress   string
	VaultMountPath string

	// AWS settings (Source == "aws")
	AWSRegion string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "challenge_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		PayerAuth: PayerAuthConfig{
			BaseURL:    getEnv("PAYERAUTH_BASE_URL", ""),
			APIVersion: getEnv("PAYERAUTH_API_VERSION", "v3"),
			Timeout:    getEnvAsInt("PAYERAUTH_TIMEOUT", 35),
		},
		Instruments: InstrumentsConfig{
			BaseURL: getEnv("PIMS_BASE_URL", ""),
			Timeout: getEnvAsInt("PIMS_TIMEOUT", 10),
		},
		TransactionData: TransactionDataConfig{
			BaseURL: getEnv("TRANSACTION_DATA_BASE_URL", ""),
			Timeout: getEnvAsInt("TRANSACTION_DATA_TIMEOUT", 10),
		},
		Challenge: ChallengeConfig{
			PSD2Enabled:           getEnvAsBool("PSD2_ENABLED", true),
			NotificationBaseURL:   getEnv("CHALLENGE_NOTIFICATION_BASE_URL", ""),
			DefaultMessageVersion: getEnv("THREEDS_MESSAGE_VERSION", "2.2.0"),
			StatusRules:           getEnvAsSlice("CHALLENGE_STATUS_RULES"),
			SessionTTLHours:       getEnvAsInt("SESSION_TTL_HOURS", 24),
		},
		Signing: SigningConfig{
			Source:         getEnv("SIGNING_KEY_SOURCE", "local"),
			SecretName:     getEnv("SIGNING_KEY_SECRET_NAME", "session-signing-key"),
			VaultAddress:   getEnv("VAULT_ADDR", ""),
			VaultMountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
			AWSRegion:      getEnv("AWS_REGION", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.PayerAuth.BaseURL == "" {
		return nil, fmt.Errorf("PAYERAUTH_BASE_URL is required")
	}
	if cfg.Instruments.BaseURL == "" {
		return nil, fmt.Errorf("PIMS_BASE_URL is required")
	}
	if cfg.TransactionData.BaseURL == "" {
		return nil, fmt.Errorf("TRANSACTION_DATA_BASE_URL is required")
	}
	if cfg.Challenge.NotificationBaseURL == "" {
		return nil, fmt.Errorf("CHALLENGE_NOTIFICATION_BASE_URL is required")
	}
	switch cfg.Signing.Source {
	case "local", "vault", "aws":
	default:
		return nil, fmt.Errorf("SIGNING_KEY_SOURCE must be one of local, vault, aws")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
