package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Observer is notified after every consumption decision.
// Implementations must be safe for concurrent use.
type Observer interface {
	RecordDecision(key string, allowed bool)
}

// Decision contains the result of a consumption attempt.
type Decision struct {
	// Key is the bucket that was consulted
	Key string

	// Allowed reports whether the tokens were granted
	Allowed bool

	// Remaining is the number of whole tokens left in the bucket
	Remaining int64

	// Limit is the bucket capacity (burst size)
	Limit int64

	// RetryAfter is how long until the same request could succeed. It is 0 when
	// Allowed is true and negative when the request exceeds the burst size.
	RetryAfter time.Duration
}

// Limiter is a registry of independent token buckets keyed by operation or domain.
//
// Keys that were never configured are created on first use with the default
// bucket configuration. A Limiter is safe for concurrent use and is meant to be
// constructed once and passed explicitly to whatever needs it.
type Limiter struct {
	registry *registry
	defaults BucketConfig
	preset   map[string]BucketConfig
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	cleanupAge      time.Duration
	cleanupInterval time.Duration
}

// NewLimiter creates a new Limiter with the given options.
//
// Example:
//
//	limiter, err := ratelimit.NewLimiter(
//	    ratelimit.WithDefaultBucket(ratelimit.BucketConfig{
//	        TokensPerSecond: 0.5,
//	        BurstSize:       30,
//	        InitialTokens:   15,
//	    }),
//	)
func NewLimiter(opts ...Option) (*Limiter, error) {
	l := &Limiter{
		registry: newRegistry(),
		defaults: DefaultBucketConfig(),
		preset:   make(map[string]BucketConfig),
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),

		cleanupInterval: time.Minute,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	for key, config := range l.preset {
		if err := l.Configure(key, config); err != nil {
			return nil, err
		}
	}
	l.preset = nil

	return l, nil
}

// Configure creates the bucket for key, or replaces it if one exists.
// Replacing resets the bucket to config.InitialTokens.
func (l *Limiter) Configure(key string, config BucketConfig) error {
	if key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidKey)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configure %q: %w", key, err)
	}

	replaced := l.registry.replace(key, config, l.now())
	l.logger.Info("rate limit bucket configured",
		slog.String("key", key),
		slog.Float64("tokens_per_second", config.TokensPerSecond),
		slog.Int64("burst_size", config.BurstSize),
		slog.Int64("initial_tokens", config.InitialTokens),
		slog.Bool("replaced", replaced),
	)
	return nil
}

// TryConsume takes n tokens from the bucket for key if they are available.
// Counts below one and empty keys are always denied.
func (l *Limiter) TryConsume(key string, n int64) bool {
	return l.Consume(key, n).Allowed
}

// IsRateLimited reports whether an operation on key must be rejected.
// It is not a read-only query: a false result means a token was consumed.
func (l *Limiter) IsRateLimited(key string) bool {
	return !l.TryConsume(key, 1)
}

// Consume is TryConsume with the details of the decision.
func (l *Limiter) Consume(key string, n int64) Decision {
	if key == "" || n < 1 {
		l.logger.Warn("rejected malformed rate limit request",
			slog.String("key", key),
			slog.Int64("tokens", n),
		)
		return Decision{Key: key, Allowed: false}
	}

	now := l.now()
	b := l.registry.getOrCreate(key, l.defaults, now)
	result := b.consume(n, now)

	decision := Decision{
		Key:       key,
		Allowed:   result.Allowed,
		Remaining: int64(math.Floor(result.Remaining)),
		Limit:     b.config.BurstSize,
	}
	if !result.Allowed {
		if result.RetryAfterMs < 0 {
			decision.RetryAfter = -1
		} else {
			decision.RetryAfter = time.Duration(result.RetryAfterMs) * time.Millisecond
		}
		l.logger.Debug("rate limit exceeded",
			slog.String("key", key),
			slog.Int64("tokens", n),
			slog.Duration("retry_after", decision.RetryAfter),
		)
	}

	if l.observer != nil {
		l.observer.RecordDecision(key, decision.Allowed)
	}

	return decision
}

// Tokens reports how many tokens the bucket for key holds right now,
// including fractional refill, without consuming anything.
// It returns false if key has no bucket yet.
func (l *Limiter) Tokens(key string) (float64, bool) {
	b, exists := l.registry.get(key)
	if !exists {
		return 0, false
	}
	return b.peek(l.now()), true
}

// BucketConfig returns the configuration in effect for key. Keys without a
// bucket report the default configuration they would be created with.
func (l *Limiter) BucketConfig(key string) BucketConfig {
	if b, exists := l.registry.get(key); exists {
		return b.config
	}
	return l.defaults
}

// Remove drops the bucket for key. The next use of key starts a fresh
// bucket from the default configuration.
func (l *Limiter) Remove(key string) bool {
	return l.registry.remove(key)
}

// Keys returns every key that currently has a bucket, sorted.
func (l *Limiter) Keys() []string {
	return l.registry.keys()
}

// Count returns the number of buckets.
func (l *Limiter) Count() int {
	return l.registry.count()
}

// Cleanup removes buckets that were auto-created for unknown keys and have
// been idle for longer than the cleanup age. Only buckets that have refilled
// completely are removed. Configured buckets are kept. It returns the number
// removed; with no cleanup age set it does nothing.
func (l *Limiter) Cleanup() int {
	if l.cleanupAge <= 0 {
		return 0
	}

	now := l.now()
	removed := l.registry.removeIdle(now.Add(-l.cleanupAge), now)
	if removed > 0 {
		l.logger.Debug("removed idle rate limit buckets",
			slog.Int("removed", removed),
			slog.Int("remaining", l.registry.count()),
		)
	}
	return removed
}

// StartBackgroundCleanup runs Cleanup every cleanup interval until the
// returned function is called. It is a no-op when no cleanup age is set.
func (l *Limiter) StartBackgroundCleanup() func() {
	if l.cleanupAge <= 0 || l.cleanupInterval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(l.cleanupInterval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
