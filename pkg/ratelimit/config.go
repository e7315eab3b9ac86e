package ratelimit

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KanavDutta/cryptofence/core"
)

// BucketConfig describes one token bucket.
type BucketConfig struct {
	// TokensPerSecond is the refill rate
	TokensPerSecond float64 `yaml:"tokens_per_second"`

	// BurstSize is the bucket capacity, the most operations allowed at once
	BurstSize int64 `yaml:"burst_size"`

	// InitialTokens is how full a freshly configured bucket starts
	InitialTokens int64 `yaml:"initial_tokens"`
}

// DefaultBucketConfig is applied to keys that were never configured:
// 60 operations per minute, bursts of 60, starting half full.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		TokensPerSecond: 1,
		BurstSize:       60,
		InitialTokens:   30,
	}
}

// Validate checks that the bucket can ever admit and refill operations.
func (c BucketConfig) Validate() error {
	if !(c.TokensPerSecond > 0) || math.IsInf(c.TokensPerSecond, 0) {
		return fmt.Errorf("%w: %w (got %v)", ErrInvalidConfig, ErrInvalidRefillRate, c.TokensPerSecond)
	}
	if c.BurstSize < 1 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, ErrInvalidBurstSize, c.BurstSize)
	}
	if c.InitialTokens < 0 || c.InitialTokens > c.BurstSize {
		return fmt.Errorf("%w: %w (got %d, burst size %d)", ErrInvalidConfig, ErrInvalidInitialTokens, c.InitialTokens, c.BurstSize)
	}
	return nil
}

func (c BucketConfig) coreConfig() core.Config {
	return core.Config{
		Capacity:     float64(c.BurstSize),
		RefillPerSec: c.TokensPerSecond,
	}
}

// Config is the file representation of a limiter: the bucket used for keys
// that are not listed, plus explicitly configured keys.
type Config struct {
	Defaults BucketConfig            `yaml:"defaults"`
	Buckets  map[string]BucketConfig `yaml:"buckets,omitempty"`
}

// NewConfig returns a Config holding DefaultBucketConfig and no explicit buckets.
func NewConfig() *Config {
	return &Config{
		Defaults: DefaultBucketConfig(),
		Buckets:  make(map[string]BucketConfig),
	}
}

// LoadConfigFromFile loads configuration from a YAML file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML limiter configuration.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if config.Buckets == nil {
		config.Buckets = make(map[string]BucketConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the defaults and every explicit bucket.
func (c *Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}

	for key, bucket := range c.Buckets {
		if key == "" {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidKey)
		}
		if err := bucket.Validate(); err != nil {
			return fmt.Errorf("invalid bucket %q: %w", key, err)
		}
	}

	return nil
}

// SetBucket adds or replaces an explicit bucket.
func (c *Config) SetBucket(key string, bucket BucketConfig) error {
	if key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidKey)
	}
	if err := bucket.Validate(); err != nil {
		return err
	}
	if c.Buckets == nil {
		c.Buckets = make(map[string]BucketConfig)
	}
	c.Buckets[key] = bucket
	return nil
}
