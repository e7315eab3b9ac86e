package core

import (
	"math"
	"time"
)

// TokenBucket implements the token bucket algorithm over an externally owned state.
// It holds no locks; callers serialize access to a given BucketState.
type TokenBucket struct {
	config Config
}

// nanosecondSlack absorbs the refill lost when a wait of 1/rate seconds is
// truncated to whole nanoseconds, plus float rounding.
const nanosecondSlack = 1e-9

// NewTokenBucket creates a new token bucket with the given configuration.
// Negative or NaN values are treated as zero; a zero rate never refills.
func NewTokenBucket(config Config) *TokenBucket {
	if !(config.Capacity > 0) {
		config.Capacity = 0
	}
	if !(config.RefillPerSec > 0) || math.IsInf(config.RefillPerSec, 0) {
		config.RefillPerSec = 0
	}
	return &TokenBucket{config: config}
}

// Config returns the bucket policy
func (tb *TokenBucket) Config() Config {
	return tb.config
}

// Check consumes a single token. See CheckN.
func (tb *TokenBucket) Check(state *BucketState, now time.Time) (*BucketState, CheckResult) {
	return tb.CheckN(state, now, 1)
}

// CheckN refills the bucket up to now and then tries to take n tokens from it.
// A nil state is treated as a fresh, full bucket. The returned state always has
// LastRefillAt == now (or the previous timestamp if the clock went backwards).
// Counts that are not positive are denied and consume nothing.
func (tb *TokenBucket) CheckN(state *BucketState, now time.Time, n float64) (*BucketState, CheckResult) {
	if state == nil {
		state = &BucketState{
			Tokens:       tb.config.Capacity,
			LastRefillAt: now,
		}
	}

	newState := tb.Refill(state, now)

	if !(n > 0) {
		return newState, CheckResult{
			Allowed:      false,
			Remaining:    newState.Tokens,
			RetryAfterMs: -1,
			Limit:        tb.config.Capacity,
		}
	}

	if n <= newState.Tokens+tb.slack() {
		newState.Tokens = math.Max(0, newState.Tokens-n)
		return newState, CheckResult{
			Allowed:   true,
			Remaining: newState.Tokens,
			Limit:     tb.config.Capacity,
		}
	}

	return newState, CheckResult{
		Allowed:      false,
		Remaining:    newState.Tokens,
		RetryAfterMs: tb.retryAfterMs(newState.Tokens, n),
		Limit:        tb.config.Capacity,
	}
}

// Refill returns a copy of state with the tokens accrued since LastRefillAt added,
// capped at capacity. A clock that moved backwards adds nothing.
func (tb *TokenBucket) Refill(state *BucketState, now time.Time) *BucketState {
	elapsed := now.Sub(state.LastRefillAt).Seconds()
	if elapsed < 0 {
		return &BucketState{Tokens: clamp(state.Tokens, tb.config.Capacity), LastRefillAt: state.LastRefillAt}
	}

	return &BucketState{
		Tokens:       clamp(state.Tokens+elapsed*tb.config.RefillPerSec, tb.config.Capacity),
		LastRefillAt: now,
	}
}

// slack is one nanosecond of refill plus a fixed epsilon.
func (tb *TokenBucket) slack() float64 {
	return tb.config.RefillPerSec*1e-9 + nanosecondSlack
}

func (tb *TokenBucket) retryAfterMs(tokens, n float64) int64 {
	if n > tb.config.Capacity || tb.config.RefillPerSec == 0 {
		return -1
	}
	retryAfterSec := (n - tokens) / tb.config.RefillPerSec
	return int64(math.Ceil(retryAfterSec * 1000))
}

func clamp(tokens, capacity float64) float64 {
	return math.Max(0, math.Min(tokens, capacity))
}
