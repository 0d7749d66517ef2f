package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix scopes every environment variable read by the service.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlags
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Checkout.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig carries both credential tiers. The restricted DSN is subject to the
// store's row-level-security policies; the elevated DSN bypasses them and is
// used by the webhook reconciler, the sync worker, and migrations.
type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN" required:"true"`
	ElevatedDSN string `envconfig:"STOREFRONT_DB_ELEVATED_DSN"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RequireElevated returns the elevated DSN or an error when it is absent.
func (db DBConfig) RequireElevated() (string, error) {
	if strings.TrimSpace(db.ElevatedDSN) == "" {
		return "", fmt.Errorf("%s_DB_ELEVATED_DSN is required", EnvPrefix)
	}
	return db.ElevatedDSN, nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDRESS"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"STOREFRONT_STRIPE_API_KEY" required:"true"`
	WebhookSecret string `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`

	// AllowUnverifiedWebhooks accepts unsigned webhook payloads. Dev-only
	// escape hatch; every bypassed verification is logged as a warning.
	AllowUnverifiedWebhooks bool `envconfig:"STOREFRONT_STRIPE_ALLOW_UNVERIFIED_WEBHOOKS" default:"false"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	TaxRate    string `envconfig:"STOREFRONT_CHECKOUT_TAX_RATE" default:"0.08"`
	Currency   string `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"usd"`
	SuccessURL string `envconfig:"STOREFRONT_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL  string `envconfig:"STOREFRONT_CHECKOUT_CANCEL_URL" required:"true"`
}

// Rate parses the configured tax rate into a decimal fraction.
func (c CheckoutConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax rate must not be negative")
	}
	return rate, nil
}

type FeatureFlags struct {
	// AutoMigrate runs goose migrations on startup in dev.
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type SyncConfig struct {
	Interval    time.Duration `envconfig:"STOREFRONT_SYNC_INTERVAL" default:"30s"`
	MaxAttempts int           `envconfig:"STOREFRONT_SYNC_MAX_ATTEMPTS" default:"10"`
}
