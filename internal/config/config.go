// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the REST API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint (e.g. :8081). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL (redis://host:6379/0); required when SessionBackend is "redis".
	RedisURL string `mapstructure:"REDIS_URL"`
	// SessionBackend selects where session tokens live: "postgres" or "redis".
	SessionBackend string `mapstructure:"SESSION_BACKEND"`

	// ActivationTokenMinutes is the lifetime of account activation tokens.
	ActivationTokenMinutes int `mapstructure:"ACTIVATION_TOKEN_MINUTES"`
	// PasswordResetTokenMinutes is the lifetime of password_change tokens.
	PasswordResetTokenMinutes int `mapstructure:"PASSWORD_RESET_TOKEN_MINUTES"`
	// SessionTokenMinutes is the lifetime of a session token, measured from issuance or last renewal.
	SessionTokenMinutes int `mapstructure:"SESSION_TOKEN_MINUTES"`
	// SessionRenewOnSuccess extends a session's expiry on every successful authenticated request.
	SessionRenewOnSuccess bool `mapstructure:"SESSION_RENEW_ON_SUCCESS"`
	// AutoActivateUsers creates accounts already active; activation tokens are still issued but unused.
	AutoActivateUsers bool `mapstructure:"AUTO_ACTIVATE_USERS"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// ActivationURL is the deep link sent by email; "{token}" is replaced by the activation key.
	ActivationURL string `mapstructure:"ACTIVATION_URL"`
	// PasswordResetURL is the deep link sent by email; "{token}" is replaced by the reset key.
	PasswordResetURL string `mapstructure:"PASSWORD_RESET_URL"`

	// NotifyWebhookURL is the mail relay that receives account links as JSON. Empty logs instead.
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`
	// NotifyWebhookAPIKey is sent as the Authorization header to the relay.
	NotifyWebhookAPIKey string `mapstructure:"NOTIFY_WEBHOOK_API_KEY"`
	// NotifyWebhookSigningKey signs each delivery with an HS256 JWT in X-Relay-Signature. Empty disables signing.
	NotifyWebhookSigningKey string `mapstructure:"NOTIFY_WEBHOOK_SIGNING_KEY"`

	// AuthzEvaluator selects the rule evaluator: "table" (built-in) or "opa" (Rego).
	AuthzEvaluator string `mapstructure:"AUTHZ_EVALUATOR"`
	// AuthzPolicyFile is an optional Rego module replacing the default policy when AuthzEvaluator is "opa".
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`

	// RateLimitPerSecond and RateLimitBurst bound credential endpoints per client IP.
	RateLimitPerSecond int `mapstructure:"RATE_LIMIT_PER_SECOND"`
	RateLimitBurst     int `mapstructure:"RATE_LIMIT_BURST"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// DevOutbox keeps the last notification per email in memory and serves it on GET /dev/outbox.
	// Must not be true when Env is production.
	DevOutbox bool `mapstructure:"DEV_OUTBOX"`
	// HousekeepingInterval is how often cmd/worker purges expired tokens (e.g. "1h").
	HousekeepingInterval string `mapstructure:"HOUSEKEEPING_INTERVAL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_BACKEND", "postgres")
	v.SetDefault("ACTIVATION_TOKEN_MINUTES", 2880)
	v.SetDefault("PASSWORD_RESET_TOKEN_MINUTES", 60)
	v.SetDefault("SESSION_TOKEN_MINUTES", 720)
	v.SetDefault("SESSION_RENEW_ON_SUCCESS", true)
	v.SetDefault("AUTO_ACTIVATE_USERS", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ACTIVATION_URL", "http://localhost:3000/register/activate/{token}")
	v.SetDefault("PASSWORD_RESET_URL", "http://localhost:3000/reset-password/{token}")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WEBHOOK_API_KEY", "")
	v.SetDefault("NOTIFY_WEBHOOK_SIGNING_KEY", "")
	v.SetDefault("AUTHZ_EVALUATOR", "table")
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("RATE_LIMIT_PER_SECOND", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("DEV_OUTBOX", false)
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	switch cfg.SessionBackend {
	case "postgres":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL must be set when SESSION_BACKEND=redis")
		}
	default:
		return nil, errors.New("config: SESSION_BACKEND must be postgres or redis")
	}

	cfg.AuthzEvaluator = strings.ToLower(strings.TrimSpace(cfg.AuthzEvaluator))
	if cfg.AuthzEvaluator != "table" && cfg.AuthzEvaluator != "opa" {
		return nil, errors.New("config: AUTHZ_EVALUATOR must be table or opa")
	}

	if cfg.ActivationTokenMinutes <= 0 || cfg.PasswordResetTokenMinutes <= 0 || cfg.SessionTokenMinutes <= 0 {
		return nil, errors.New("config: token lifetimes must be positive")
	}

	if cfg.DevOutbox && cfg.Env == "production" {
		return nil, errors.New("config: DEV_OUTBOX must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// ActivationTTL returns the account activation token lifetime.
func (c *Config) ActivationTTL() time.Duration {
	return time.Duration(c.ActivationTokenMinutes) * time.Minute
}

// PasswordResetTTL returns the password_change token lifetime.
func (c *Config) PasswordResetTTL() time.Duration {
	return time.Duration(c.PasswordResetTokenMinutes) * time.Minute
}

// SessionTTL returns the session token lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTokenMinutes) * time.Minute
}

// HousekeepingEvery parses HousekeepingInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) HousekeepingEvery() time.Duration {
	d, err := time.ParseDuration(c.HousekeepingInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
