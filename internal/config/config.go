package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Stripe configuration
	Stripe StripeConfig

	// Public application URLs used for checkout redirects
	App AppConfig

	// Document store configuration
	Database DatabaseConfig

	// Processed-event ledger (optional)
	Redis RedisConfig

	// Payment event broker (optional)
	Broker BrokerConfig

	// Admin API configuration
	Admin AdminConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// StripeConfig holds Stripe gateway configuration
type StripeConfig struct {
	SecretKey         string // sk_... (SECRET - never expose to client)
	WebhookSecret     string // whsec_... signing secret for the webhook endpoint
	WebhookTolerance  time.Duration
	Timeout           time.Duration
	MaxNetworkRetries int64
	DefaultCurrency   string
	ProductName       string
}

// AppConfig holds the public app URL the payer is redirected back to
type AppConfig struct {
	PublicURL string
}

// DatabaseConfig holds document store configuration
type DatabaseConfig struct {
	Driver             string // "postgres", "pgx" or "memory"
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
	OperationTimeout   time.Duration
}

// RedisConfig holds the processed webhook event ledger configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	EventTTL time.Duration
}

// BrokerConfig holds RabbitMQ configuration for payment events
type BrokerConfig struct {
	URL      string
	Exchange string
}

// AdminConfig holds configuration for the tutor payout admin API
type AdminConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:         getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
			WebhookTolerance:  time.Duration(getEnvAsInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
			Timeout:           time.Duration(getEnvAsInt("STRIPE_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxNetworkRetries: int64(getEnvAsInt("STRIPE_MAX_NETWORK_RETRIES", 0)),
			DefaultCurrency:   strings.ToLower(getEnv("DEFAULT_CURRENCY", "inr")),
			ProductName:       getEnv("CHECKOUT_PRODUCT_NAME", "Tutor Booking Payment"),
		},
		App: AppConfig{
			PublicURL: strings.TrimRight(getEnv("APP_URL", ""), "/"),
		},
		Database: DatabaseConfig{
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
			OperationTimeout:   time.Duration(getEnvAsInt("STORE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			EventTTL: time.Duration(getEnvAsInt("WEBHOOK_EVENT_TTL_HOURS", 72)) * time.Hour,
		},
		Broker: BrokerConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "payments"),
		},
		Admin: AdminConfig{
			JWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("ADMIN_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "memory":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'postgres', 'pgx' or 'memory')", c.Database.Driver)
	}

	if c.Stripe.WebhookTolerance <= 0 {
		return fmt.Errorf("STRIPE_WEBHOOK_TOLERANCE_SECONDS must be positive")
	}

	if c.Stripe.MaxNetworkRetries < 0 {
		return fmt.Errorf("STRIPE_MAX_NETWORK_RETRIES cannot be negative")
	}

	// Production refuses to start half-configured; development only warns at startup
	if c.IsProduction() {
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
		}

		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}

		if c.App.PublicURL == "" {
			return fmt.Errorf("APP_URL is required in production")
		}

		if c.Database.Driver == "memory" {
			return fmt.Errorf("DATABASE_DRIVER=memory is not allowed in production")
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// StoreConfigured reports whether a document store should be initialised
func (c *Config) StoreConfigured() bool {
	return c.Database.Driver == "memory" || c.Database.URL != ""
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
