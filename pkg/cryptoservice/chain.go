package cryptoservice

import "log/slog"

// New builds the standard decorator chain around base:
// logging, then validation, then rate limiting, then base.
// A nil limiter skips rate limiting.
func New(base Service, limiter RateLimiter, logger *slog.Logger) Service {
	svc := base
	if limiter != nil {
		svc = WithRateLimit(svc, limiter)
	}
	svc = WithValidation(svc)
	return WithLogging(svc, logger)
}
