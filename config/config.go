// Package config loads the server configuration from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrMissingMasterKey is returned in production when ENCRYPTION_KEY is unset
	ErrMissingMasterKey = errors.New("ENCRYPTION_KEY is required in production")

	// ErrInvalidMasterKey is returned when ENCRYPTION_KEY is not 32 hex-encoded bytes
	ErrInvalidMasterKey = errors.New("ENCRYPTION_KEY must be 64 hex characters")
)

// Config holds all server configuration.
type Config struct {
	Environment string `env:"CRYPTOFENCE_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Secure storage. Empty RedisURL selects the in-memory store.
	RedisURL string        `env:"REDIS_URL"`
	RedisTTL time.Duration `env:"REDIS_TTL" envDefault:"0s"`

	// Hex-encoded 32-byte vault master key
	MasterKeyHex string `env:"ENCRYPTION_KEY"`

	// Per-operation buckets from YAML. When unset the domain budget below is used.
	RateLimitsFile string `env:"RATE_LIMITS_FILE"`

	MaxOperationsPerMinute int64         `env:"MAX_OPERATIONS_PER_MINUTE" envDefault:"60"`
	CooldownPeriod         time.Duration `env:"COOLDOWN_PERIOD" envDefault:"0s"`
	Domain                 string        `env:"RATE_LIMIT_DOMAIN" envDefault:"CryptoOperations"`

	// HTTP gate applied per client address
	ClientRequestsPerMinute int64  `env:"CLIENT_REQUESTS_PER_MINUTE" envDefault:"600"`
	ClientKey               string `env:"CLIENT_KEY" envDefault:"ip"`

	// Budget for each key named in POST /check
	CheckRequestsPerMinute int64 `env:"CHECK_REQUESTS_PER_MINUTE" envDefault:"60"`

	// Auto-created client and /check buckets idle this long are dropped; 0 keeps them
	IdleBucketTTL         time.Duration `env:"IDLE_BUCKET_TTL" envDefault:"1h"`
	BucketCleanupInterval time.Duration `env:"BUCKET_CLEANUP_INTERVAL" envDefault:"5m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// The .env file is optional
	_ = godotenv.Load()

	return parse(env.Options{})
}

// LoadFromMap parses configuration from the given variables only.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.MasterKeyHex == "" && c.IsProduction() {
		return ErrMissingMasterKey
	}
	if c.MasterKeyHex != "" {
		if _, err := c.MasterKey(); err != nil {
			return err
		}
	}
	if err := c.Adapter().Validate(); err != nil {
		return err
	}
	if c.ClientRequestsPerMinute < 1 {
		return fmt.Errorf("CLIENT_REQUESTS_PER_MINUTE must be at least 1, got %d", c.ClientRequestsPerMinute)
	}
	if c.CheckRequestsPerMinute < 1 {
		return fmt.Errorf("CHECK_REQUESTS_PER_MINUTE must be at least 1, got %d", c.CheckRequestsPerMinute)
	}
	if c.IdleBucketTTL < 0 {
		return fmt.Errorf("IDLE_BUCKET_TTL cannot be negative, got %v", c.IdleBucketTTL)
	}
	if c.BucketCleanupInterval <= 0 {
		return fmt.Errorf("BUCKET_CLEANUP_INTERVAL must be positive, got %v", c.BucketCleanupInterval)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// MasterKey decodes MasterKeyHex. It returns nil, nil when no key is set.
func (c *Config) MasterKey() ([]byte, error) {
	if c.MasterKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.MasterKeyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidMasterKey
	}
	return key, nil
}

// Adapter returns the domain budget described by the environment.
func (c *Config) Adapter() ratelimit.AdapterConfig {
	return ratelimit.AdapterConfig{
		MaxOperationsPerMinute: c.MaxOperationsPerMinute,
		CooldownPeriod:         c.CooldownPeriod,
		Domain:                 c.Domain,
	}
}

// CheckBucket is the bucket behind each key named in POST /check.
func (c *Config) CheckBucket() ratelimit.BucketConfig {
	return ratelimit.AdapterConfig{MaxOperationsPerMinute: c.CheckRequestsPerMinute}.BucketConfig()
}

// ClientBucket is the bucket applied to each HTTP client.
func (c *Config) ClientBucket() ratelimit.BucketConfig {
	return ratelimit.AdapterConfig{MaxOperationsPerMinute: c.ClientRequestsPerMinute}.BucketConfig()
}
