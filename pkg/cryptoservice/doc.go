// Package cryptoservice is a small crypto facade assembled from decorators.
//
// Standard does the work with platform primitives (AES-GCM, SHA-256,
// crypto/rand). Decorators wrap any Service to add one concern each:
//
//	svc := cryptoservice.NewStandard()
//	svc = cryptoservice.WithRateLimit(svc, limiter) // limiter.IsRateLimited(op)
//	svc = cryptoservice.WithValidation(svc)
//	svc = cryptoservice.WithLogging(svc, logger)
//
// New builds exactly that chain. The rate limiter is always passed in; there
// is no package-level limiter. When it denies an operation the call fails with
// an error wrapping ErrRateLimited and the wrapped Service is not invoked.
//
// Vault stores sealed records in a SecureStorage backend.
package cryptoservice
