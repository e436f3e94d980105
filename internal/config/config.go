package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/kms"
	"github.com/vencura/vencura/pkg/types"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the process configuration
type Config struct {
	// Server
	Host        string
	Port        int
	AppEnv      string
	CORSOrigins []string

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Logging
	LogFormat string
	LogLevel  string

	// Identity provider tenant
	EnvironmentID   string
	AuthProviderURL string

	// Remote custody; an API key switches custody from local to remote
	APIKey                  string
	CustodyAPIURL           string
	CustodyTxSigningEnabled bool

	// Storage
	StorageBackend     string
	PostgresDSN        string
	MaxAccountsPerUser int

	// RPCURLs maps chain name to an RPC endpoint override
	RPCURLs map[string]string

	KMS kms.Config
}

// DotEnvFile is read before the environment, if it exists
const DotEnvFile = ".env"

// Load reads .env (when present) and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnvInt("PORT", 8080),
		AppEnv:      getEnv("APP_ENV", "development"),
		CORSOrigins: splitList(getEnv("CORS_ORIGIN", "http://localhost:3000")),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),

		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),

		EnvironmentID:   getEnv("DYNAMIC_ENVIRONMENT_ID", ""),
		AuthProviderURL: getEnv("AUTH_PROVIDER_URL", "https://app.dynamic.xyz"),

		APIKey:                  getEnv("DYNAMIC_AUTH_TOKEN", ""),
		CustodyAPIURL:           getEnv("CUSTODY_API_URL", "https://app.dynamic.xyz/api/v0"),
		CustodyTxSigningEnabled: getEnvBool("CUSTODY_TX_SIGNING_ENABLED", false),

		StorageBackend:     getEnv("STORAGE_BACKEND", StoragePostgres),
		PostgresDSN:        getEnv("POSTGRES_DSN", ""),
		MaxAccountsPerUser: getEnvInt("MAX_ACCOUNTS_PER_USER", types.MaxAccountsPerUser),

		RPCURLs: map[string]string{
			chain.Sepolia:       getEnv("SEPOLIA_RPC_URL", ""),
			chain.AvalancheFuji: getEnv("AVALANCHE_FUJI_RPC_URL", ""),
		},

		KMS: kms.Config{
			Provider:          getEnv("KMS_PROVIDER", ""),
			LocalMasterKeyHex: getEnv("KMS_LOCAL_MASTER_KEY", ""),
			AWSKeyID:          getEnv("KMS_AWS_KEY_ID", ""),
			AWSRegion:         getEnv("KMS_AWS_REGION", ""),
			VaultAddress:      getEnv("KMS_VAULT_ADDRESS", ""),
			VaultToken:        getEnv("KMS_VAULT_TOKEN", ""),
			VaultTransitKey:   getEnv("KMS_VAULT_TRANSIT_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.EnvironmentID == "" {
		return fmt.Errorf("DYNAMIC_ENVIRONMENT_ID is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}

	switch c.StorageBackend {
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND is 'postgres'")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'postgres' or 'memory', got: %s", c.StorageBackend)
	}

	if c.MaxAccountsPerUser <= 0 {
		return fmt.Errorf("MAX_ACCOUNTS_PER_USER must be positive")
	}

	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	switch kms.ProviderType(c.KMS.Provider) {
	case kms.ProviderNone, "none":
	case kms.ProviderLocal:
		if c.KMS.LocalMasterKeyHex == "" {
			return fmt.Errorf("KMS_LOCAL_MASTER_KEY is required when KMS_PROVIDER is 'local'")
		}
	case kms.ProviderAWSKMS:
		if c.KMS.AWSKeyID == "" || c.KMS.AWSRegion == "" {
			return fmt.Errorf("KMS_AWS_KEY_ID and KMS_AWS_REGION are required when KMS_PROVIDER is 'aws-kms'")
		}
	case kms.ProviderVault:
		if c.KMS.VaultAddress == "" || c.KMS.VaultToken == "" || c.KMS.VaultTransitKey == "" {
			return fmt.Errorf("KMS_VAULT_ADDRESS, KMS_VAULT_TOKEN and KMS_VAULT_TRANSIT_KEY are required when KMS_PROVIDER is 'vault'")
		}
	default:
		return fmt.Errorf("KMS_PROVIDER must be one of none, local, aws-kms, vault, got: %s", c.KMS.Provider)
	}

	return nil
}

// RemoteCustody reports whether a custody API key is configured
func (c *Config) RemoteCustody() bool {
	return c.APIKey != ""
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
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

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
