package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vencura/vencura/internal/chain"
)

func validConfig() *Config {
	return &Config{
		Port:               8080,
		EnvironmentID:      "env-1",
		StorageBackend:     StorageMemory,
		MaxAccountsPerUser: 10,
		RateLimitEnabled:   true,
		RateLimitRPS:       20,
		RateLimitBurst:     20,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid memory config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing environment id",
			mutate:  func(c *Config) { c.EnvironmentID = "" },
			wantErr: "DYNAMIC_ENVIRONMENT_ID is required",
		},
		{
			name:    "postgres without DSN",
			mutate:  func(c *Config) { c.StorageBackend = StoragePostgres },
			wantErr: "POSTGRES_DSN is required",
		},
		{
			name: "postgres with DSN",
			mutate: func(c *Config) {
				c.StorageBackend = StoragePostgres
				c.PostgresDSN = "postgres://localhost:5432/vencura"
			},
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.StorageBackend = "mongo" },
			wantErr: "STORAGE_BACKEND must be",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "PORT must be between",
		},
		{
			name:    "zero quota",
			mutate:  func(c *Config) { c.MaxAccountsPerUser = 0 },
			wantErr: "MAX_ACCOUNTS_PER_USER",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.RateLimitBurst = 0 },
			wantErr: "RATE_LIMIT_BURST",
		},
		{
			name: "rate limit disabled ignores rps",
			mutate: func(c *Config) {
				c.RateLimitEnabled = false
				c.RateLimitRPS = 0
			},
		},
		{
			name:    "local KMS without key",
			mutate:  func(c *Config) { c.KMS.Provider = "local" },
			wantErr: "KMS_LOCAL_MASTER_KEY is required",
		},
		{
			name:    "aws KMS without region",
			mutate:  func(c *Config) { c.KMS.Provider = "aws-kms"; c.KMS.AWSKeyID = "alias/k" },
			wantErr: "KMS_AWS_REGION",
		},
		{
			name:    "vault KMS incomplete",
			mutate:  func(c *Config) { c.KMS.Provider = "vault"; c.KMS.VaultAddress = "http://vault" },
			wantErr: "KMS_VAULT_TOKEN",
		},
		{
			name:    "unknown KMS provider",
			mutate:  func(c *Config) { c.KMS.Provider = "gcp" },
			wantErr: "KMS_PROVIDER must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DYNAMIC_ENVIRONMENT_ID", "env-1")
		t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
		assert.Equal(t, StoragePostgres, cfg.StorageBackend)
		assert.Equal(t, 10, cfg.MaxAccountsPerUser)
		assert.Equal(t, "https://app.dynamic.xyz", cfg.AuthProviderURL)
		assert.False(t, cfg.RemoteCustody())
		assert.False(t, cfg.CustodyTxSigningEnabled)
		assert.False(t, cfg.IsProduction())
		assert.True(t, cfg.RateLimitEnabled)
		assert.Empty(t, cfg.KMS.Provider)
		assert.Empty(t, cfg.RPCURLs[chain.Sepolia])
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("DYNAMIC_ENVIRONMENT_ID", "env-2")
		t.Setenv("DYNAMIC_AUTH_TOKEN", "dyn_secret")
		t.Setenv("APP_ENV", "production")
		t.Setenv("PORT", "9090")
		t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
		t.Setenv("STORAGE_BACKEND", "memory")
		t.Setenv("MAX_ACCOUNTS_PER_USER", "3")
		t.Setenv("RATE_LIMIT_RPS", "2.5")
		t.Setenv("SEPOLIA_RPC_URL", "https://rpc.sepolia.example")
		t.Setenv("KMS_PROVIDER", "local")
		t.Setenv("KMS_LOCAL_MASTER_KEY", "00112233")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
		assert.True(t, cfg.RemoteCustody())
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, 3, cfg.MaxAccountsPerUser)
		assert.Equal(t, 2.5, cfg.RateLimitRPS)
		assert.Equal(t, "https://rpc.sepolia.example", cfg.RPCURLs[chain.Sepolia])
		assert.Equal(t, "local", cfg.KMS.Provider)
	})

	t.Run("missing environment id", func(t *testing.T) {
		t.Setenv("DYNAMIC_ENVIRONMENT_ID", "")
		t.Setenv("STORAGE_BACKEND", "memory")

		cfg, err := Load()
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "DYNAMIC_ENVIRONMENT_ID is required")
	})
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(
		"DYNAMIC_ENVIRONMENT_ID=from-file\nSTORAGE_BACKEND=memory\nPORT=7070\n"), 0o600))

	// Real environment wins over the file
	t.Setenv("PORT", "6060")
	// Variables the file sets are restored after the test
	t.Setenv("DYNAMIC_ENVIRONMENT_ID", "")
	t.Setenv("STORAGE_BACKEND", "")
	os.Unsetenv("DYNAMIC_ENVIRONMENT_ID")
	os.Unsetenv("STORAGE_BACKEND")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.EnvironmentID)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 6060, cfg.Port)
}

func TestGetEnvHelpers(t *testing.T) {
	const key = "VENCURA_TEST_ENV_VAR"

	t.Setenv(key, "")
	assert.Equal(t, "d", getEnv(key, "d"))
	assert.Equal(t, 42, getEnvInt(key, 42))
	assert.Equal(t, 1.5, getEnvFloat(key, 1.5))
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "not-a-number")
	assert.Equal(t, 42, getEnvInt(key, 42))
	assert.Equal(t, 1.5, getEnvFloat(key, 1.5))
	assert.False(t, getEnvBool(key, true))

	for _, v := range []string{"true", "TRUE", "1", "yes"} {
		t.Setenv(key, v)
		assert.True(t, getEnvBool(key, false), v)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
