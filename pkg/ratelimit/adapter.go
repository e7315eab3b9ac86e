package ratelimit

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultDomain is the budget name used when an AdapterConfig leaves Domain empty.
const DefaultDomain = "CryptoOperations"

// AdapterConfig is the user-facing way to describe a rate limit:
// a per-minute budget shared by every operation in a domain.
type AdapterConfig struct {
	MaxOperationsPerMinute int64         `yaml:"max_operations_per_minute"`
	CooldownPeriod         time.Duration `yaml:"cooldown_period"`
	Domain                 string        `yaml:"domain"`
}

// Validate checks the budget and cooldown.
func (c AdapterConfig) Validate() error {
	if c.MaxOperationsPerMinute < 1 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, ErrInvalidOperationsPerMinute, c.MaxOperationsPerMinute)
	}
	if c.CooldownPeriod < 0 {
		return fmt.Errorf("%w: %w (got %v)", ErrInvalidConfig, ErrInvalidCooldown, c.CooldownPeriod)
	}
	return nil
}

// BucketConfig derives the token bucket: the whole per-minute budget may be
// spent in one burst, it refills at budget/60 tokens per second, and it
// starts half full.
func (c AdapterConfig) BucketConfig() BucketConfig {
	return BucketConfig{
		TokensPerSecond: float64(c.MaxOperationsPerMinute) / 60,
		BurstSize:       c.MaxOperationsPerMinute,
		InitialTokens:   c.MaxOperationsPerMinute / 2,
	}
}

// CreateAdapter builds a fresh Limiter from the derived bucket configuration
// and wraps it. opts are applied after the derived default bucket, so they can
// add a clock, logger or observer.
func (c AdapterConfig) CreateAdapter(opts ...Option) (*Adapter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Domain == "" {
		c.Domain = DefaultDomain
	}

	bucket := c.BucketConfig()
	limiter, err := NewLimiter(append([]Option{WithDefaultBucket(bucket)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := limiter.Configure(c.Domain, bucket); err != nil {
		return nil, err
	}

	return &Adapter{limiter: limiter, config: c}, nil
}

// Adapter exposes a domain-wide budget through a narrow IsRateLimited call.
// Every operation draws from the same domain bucket.
type Adapter struct {
	limiter *Limiter
	config  AdapterConfig
}

// IsRateLimited consumes one token from the domain budget and reports whether
// the operation must be rejected.
func (a *Adapter) IsRateLimited(operation string) bool {
	limited := a.limiter.IsRateLimited(a.config.Domain)
	if limited {
		a.limiter.logger.Debug("operation rate limited",
			slog.String("domain", a.config.Domain),
			slog.String("operation", operation),
		)
	}
	return limited
}

// CooldownPeriod returns the configured cooldown. The limiter does not enforce
// it; it is there for callers that implement their own backoff.
func (a *Adapter) CooldownPeriod() time.Duration {
	return a.config.CooldownPeriod
}

// Domain returns the key of the shared bucket.
func (a *Adapter) Domain() string {
	return a.config.Domain
}

// Config returns the configuration the adapter was created from, with the
// domain defaulted.
func (a *Adapter) Config() AdapterConfig {
	return a.config
}

// Limiter returns the underlying limiter.
func (a *Adapter) Limiter() *Limiter {
	return a.limiter
}
