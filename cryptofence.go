// Package cryptofence re-exports the rate limiter and the decorated crypto
// service so that simple programs need a single import.
package cryptofence

import (
	"github.com/KanavDutta/cryptofence/pkg/cryptoservice"
	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
)

// Re-export main types for convenience
type (
	Limiter       = ratelimit.Limiter
	BucketConfig  = ratelimit.BucketConfig
	Decision      = ratelimit.Decision
	Adapter       = ratelimit.Adapter
	AdapterConfig = ratelimit.AdapterConfig
	Service       = cryptoservice.Service
	Vault         = cryptoservice.Vault
)

var (
	// NewLimiter creates a token-bucket limiter
	NewLimiter = ratelimit.NewLimiter

	// NewService wraps the standard primitives in the logging, validation and
	// rate limiting decorators
	NewService = cryptoservice.New

	// NewVault creates a record vault on top of a Service
	NewVault = cryptoservice.NewVault

	// ErrRateLimited is returned by a rate limited Service on denial
	ErrRateLimited = cryptoservice.ErrRateLimited
)
