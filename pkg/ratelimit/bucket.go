package ratelimit

import (
	"sync"
	"time"

	"github.com/KanavDutta/cryptofence/core"
)

// bucket is a single keyed token bucket. The arithmetic lives in core;
// bucket owns the state and serializes access to it.
type bucket struct {
	mu       sync.Mutex
	policy   *core.TokenBucket
	state    core.BucketState
	config   BucketConfig
	lastUsed time.Time

	// Configured buckets are never removed by idle cleanup
	configured bool
}

func newBucket(config BucketConfig, now time.Time, configured bool) *bucket {
	return &bucket{
		policy: core.NewTokenBucket(config.coreConfig()),
		state: core.BucketState{
			Tokens:       float64(config.InitialTokens),
			LastRefillAt: now,
		},
		config:     config,
		lastUsed:   now,
		configured: configured,
	}
}

// consume runs refill-then-consume as one critical section.
func (b *bucket) consume(n int64, now time.Time) core.CheckResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, result := b.policy.CheckN(&b.state, now, float64(n))
	b.state = *state
	if now.After(b.lastUsed) {
		b.lastUsed = now
	}
	return result
}

// idle reports whether the bucket went unused since before cutoff and has
// refilled completely, so recreating it can never grant extra tokens.
func (b *bucket) idle(cutoff, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configured || !b.lastUsed.Before(cutoff) {
		return false
	}
	return b.policy.Refill(&b.state, now).Tokens >= b.policy.Config().Capacity
}

// peek reports the tokens that would be available at now without storing the refill.
func (b *bucket) peek(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.policy.Refill(&b.state, now).Tokens
}
