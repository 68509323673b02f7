package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/hrms",
		JWTSecret:          "dev-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid development config"},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = " " },
			wantErr: "DATABASE_URL",
		},
		{
			name: "weak production secret",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.DataEncryptionKey = "k"
			},
			wantErr: "JWT_SECRET",
		},
		{
			name: "production without encryption key",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "0123456789abcdef0123456789abcdef"
			},
			wantErr: "DATA_ENCRYPTION_KEY",
		},
		{
			name:    "tiny body limit",
			mutate:  func(c *Config) { c.MaxBodyBytes = 10 },
			wantErr: "MAX_BODY_BYTES",
		},
		{
			name:    "email without smtp host",
			mutate:  func(c *Config) { c.EmailEnabled = true },
			wantErr: "SMTP_HOST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
}
