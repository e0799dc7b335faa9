package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Database drivers
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Payment provider configuration
	Payment PaymentConfig

	// Redis configuration (webhook event dedup)
	Redis RedisConfig

	// Message broker configuration (domain events)
	Broker BrokerConfig

	// Reconciliation sweep configuration
	Reconciliation ReconciliationConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Backend            string // "memory" or "postgres"
	Driver             string // "pgx" or "postgres" (lib/pq)
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// PaymentConfig holds Stripe configuration
type PaymentConfig struct {
	SecretKey        string // STRIPE_SECRET_KEY (never expose to client)
	WebhookSecret    string // STRIPE_WEBHOOK_SECRET, signs webhook deliveries
	APIURL           string // override for tests and stripe-mock
	DefaultCurrency  string
	WebhookTolerance time.Duration
	RequestTimeout   time.Duration
	StorageRetries   int // attempts for storage writes after a provider call succeeded
}

// RedisConfig holds redis configuration. Empty URL disables redis.
type RedisConfig struct {
	URL         string
	DedupTTL    time.Duration
	DedupPrefix string
}

// BrokerConfig holds AMQP configuration. Empty URL uses the in-process channel.
type BrokerConfig struct {
	AMQPURL string
}

// ReconciliationConfig holds the processing-booking sweep configuration
type ReconciliationConfig struct {
	Enabled    bool
	Schedule   string // cron spec with seconds
	StaleAfter time.Duration
	BatchSize  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Backend:            getEnv("STORAGE_BACKEND", StoragePostgres),
			Driver:             getEnv("DATABASE_DRIVER", DriverPgx),
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Payment: PaymentConfig{
			SecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:           getEnv("STRIPE_API_URL", ""),
			DefaultCurrency:  strings.ToLower(getEnv("PAYMENT_DEFAULT_CURRENCY", "usd")),
			WebhookTolerance: getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
			RequestTimeout:   getEnvAsDuration("STRIPE_REQUEST_TIMEOUT", 30*time.Second),
			StorageRetries:   getEnvAsInt("STORAGE_RETRY_ATTEMPTS", 3),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			DedupTTL:    getEnvAsDuration("WEBHOOK_DEDUP_TTL", 72*time.Hour),
			DedupPrefix: getEnv("WEBHOOK_DEDUP_PREFIX", "staychill:webhook:"),
		},
		Broker: BrokerConfig{
			AMQPURL: getEnv("AMQP_URL", ""),
		},
		Reconciliation: ReconciliationConfig{
			Enabled:    getEnvAsBool("RECONCILE_ENABLED", true),
			Schedule:   getEnv("RECONCILE_SCHEDULE", "0 */5 * * * *"),
			StaleAfter: getEnvAsDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
			BatchSize:  getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
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
	switch c.Database.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %s", StoragePostgres)
		}
		if c.Database.Driver != DriverPgx && c.Database.Driver != DriverPq {
			return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be '%s' or '%s')", c.Database.Driver, DriverPgx, DriverPq)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %s (must be '%s' or '%s')", c.Database.Backend, StorageMemory, StoragePostgres)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if len(c.Payment.DefaultCurrency) != 3 {
		return fmt.Errorf("PAYMENT_DEFAULT_CURRENCY must be a 3-letter ISO code, got %q", c.Payment.DefaultCurrency)
	}

	if c.Payment.StorageRetries < 1 {
		return fmt.Errorf("STORAGE_RETRY_ATTEMPTS must be at least 1")
	}

	if c.Reconciliation.Enabled {
		if _, err := CronParser.Parse(c.Reconciliation.Schedule); err != nil {
			return fmt.Errorf("invalid RECONCILE_SCHEDULE %q: %w", c.Reconciliation.Schedule, err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// CronParser parses six-field cron specs (seconds first)
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

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
		logrus.Warnf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		logrus.Warnf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logrus.Warnf("Invalid duration value for %s, using default: %s", key, defaultValue)
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
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
