package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "inr", cfg.Stripe.DefaultCurrency)
	assert.Equal(t, "Tutor Booking Payment", cfg.Stripe.ProductName)
	assert.Equal(t, 300*time.Second, cfg.Stripe.WebhookTolerance)
	assert.Equal(t, 30*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, int64(0), cfg.Stripe.MaxNetworkRetries)
	assert.Equal(t, 10*time.Second, cfg.Database.OperationTimeout)
	assert.Equal(t, 72*time.Hour, cfg.Redis.EventTTL)
	assert.Equal(t, "payments", cfg.Broker.Exchange)
	assert.True(t, cfg.StoreConfigured())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "8080")
	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("APP_URL", "https://app.example.com/")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "usd", cfg.Stripe.DefaultCurrency)
	assert.Equal(t, "https://app.example.com", cfg.App.PublicURL)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.True(t, cfg.StoreConfigured())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_NoStore(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.StoreConfigured())
}

func validProductionConfig() *Config {
	return &Config{
		Server: ServerConfig{Environment: "production"},
		Stripe: StripeConfig{
			SecretKey:        "sk_live_x",
			WebhookSecret:    "whsec_x",
			WebhookTolerance: 5 * time.Minute,
		},
		App:      AppConfig{PublicURL: "https://app.example.com"},
		Database: DatabaseConfig{Driver: "postgres", URL: "postgres://db"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid production", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "invalid DATABASE_DRIVER"},
		{"zero tolerance", func(c *Config) { c.Stripe.WebhookTolerance = 0 }, "STRIPE_WEBHOOK_TOLERANCE_SECONDS"},
		{"negative retries", func(c *Config) { c.Stripe.MaxNetworkRetries = -1 }, "STRIPE_MAX_NETWORK_RETRIES"},
		{"missing secret key", func(c *Config) { c.Stripe.SecretKey = "" }, "STRIPE_SECRET_KEY"},
		{"missing webhook secret", func(c *Config) { c.Stripe.WebhookSecret = "" }, "STRIPE_WEBHOOK_SECRET"},
		{"missing app url", func(c *Config) { c.App.PublicURL = "" }, "APP_URL"},
		{"memory in production", func(c *Config) { c.Database.Driver = "memory" }, "not allowed in production"},
		{"development without secrets", func(c *Config) {
			c.Server.Environment = "development"
			c.Stripe.SecretKey = ""
			c.Stripe.WebhookSecret = ""
			c.Database.Driver = "memory"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validProductionConfig()
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
