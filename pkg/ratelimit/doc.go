// Package ratelimit gates security-sensitive operations with token buckets.
//
// A Limiter holds one bucket per key (an operation name or a domain). Each
// bucket has a capacity (the burst size), a refill rate in tokens per second
// and a current, possibly fractional, token count. Tokens are refilled lazily
// on every call and never exceed the capacity, however long a bucket sits idle.
//
// # Quick Start
//
//	limiter, err := ratelimit.NewLimiter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := limiter.Configure("encrypt", ratelimit.BucketConfig{
//	    TokensPerSecond: 0.5, // 30 per minute
//	    BurstSize:       30,
//	    InitialTokens:   15,
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	if limiter.IsRateLimited("encrypt") {
//	    return ErrRateLimited
//	}
//
// IsRateLimited consumes a token when it returns false; asking is the
// throttling action, not a peek. Use Tokens for a read-only view.
//
// Keys that were never configured get a bucket from the default configuration
// on first use (DefaultBucketConfig unless WithDefaultBucket or WithConfig says
// otherwise).
//
// # Adapter
//
// AdapterConfig describes a limit the way callers usually think about it:
//
//	adapter, err := ratelimit.AdapterConfig{
//	    MaxOperationsPerMinute: 30,
//	    CooldownPeriod:         5 * time.Second,
//	    Domain:                 "CryptoOperations",
//	}.CreateAdapter()
//
// The derived bucket refills at 30/60 tokens per second, holds up to 30 and
// starts with 15. All operations share the domain's bucket. CooldownPeriod is
// carried for the caller's own backoff policy and is not enforced here.
//
// # Configuration
//
// Buckets can be loaded from YAML:
//
//	defaults:
//	  tokens_per_second: 1
//	  burst_size: 60
//	  initial_tokens: 30
//
//	buckets:
//	  encrypt:
//	    tokens_per_second: 0.5
//	    burst_size: 30
//	    initial_tokens: 15
package ratelimit
