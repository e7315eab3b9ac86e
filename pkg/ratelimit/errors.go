package ratelimit

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidRefillRate is returned when tokens per second is zero, negative or not finite
	ErrInvalidRefillRate = errors.New("tokens per second must be a positive number")

	// ErrInvalidBurstSize is returned when the bucket capacity is below one
	ErrInvalidBurstSize = errors.New("burst size must be at least 1")

	// ErrInvalidInitialTokens is returned when initial tokens fall outside [0, burst size]
	ErrInvalidInitialTokens = errors.New("initial tokens must be between 0 and burst size")

	// ErrInvalidOperationsPerMinute is returned when an adapter budget is below one operation
	ErrInvalidOperationsPerMinute = errors.New("max operations per minute must be at least 1")

	// ErrInvalidCooldown is returned when the cooldown period is negative
	ErrInvalidCooldown = errors.New("cooldown period cannot be negative")

	// ErrInvalidKey is returned when the rate limit key is empty
	ErrInvalidKey = errors.New("rate limit key cannot be empty")
)
