package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AppEnv:             "development",
		StorageDriver:      StorageMemory,
		JWTSecret:          "dev-secret",
		RateLimitPerMinute: 120,
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("STORAGE_DRIVER", StorageMemory)
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "2h0m0s", cfg.JWTTTL.String())
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "jwt secret must be provided"},
		{name: "short production secret", mutate: func(c *Config) { c.AppEnv = "production" }, wantErr: "at least 32 bytes"},
		{name: "long production secret", mutate: func(c *Config) {
			c.AppEnv = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StorageDriver = StoragePostgres }, wantErr: "PG_DSN"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: `unknown storage driver "sqlite"`},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = -1 }, wantErr: "rate limit"},
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

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	_, err = NewLogger(&Config{LogLevel: "loud"})
	assert.Error(t, err)
}
