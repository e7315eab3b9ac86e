package core

import "time"

// Config defines the refill policy of a single bucket
type Config struct {
	Capacity     float64 // Maximum tokens (burst size)
	RefillPerSec float64 // Tokens added per second
}

// BucketState represents the mutable part of a token bucket
type BucketState struct {
	Tokens       float64   `json:"tokens"`         // Current tokens available
	LastRefillAt time.Time `json:"last_refill_at"` // Last time tokens were refilled
}

// CheckResult contains the result of a consumption attempt
type CheckResult struct {
	Allowed      bool    // Whether the tokens were granted
	Remaining    float64 // Tokens left in the bucket after this check
	RetryAfterMs int64   // Milliseconds until the request could succeed, -1 if it never can
	Limit        float64 // Total capacity
}
