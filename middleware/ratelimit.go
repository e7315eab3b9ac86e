// Package middleware gates HTTP traffic per client with a ratelimit.Limiter.
package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/KanavDutta/cryptofence/logger"
	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
)

// RateLimiter is HTTP middleware that charges one token per request to the
// bucket of the calling client.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	keyFunc KeyFunc
	prefix  string
	logger  *slog.Logger
}

// Config for creating a rate limiter
type Config struct {
	Limiter   *ratelimit.Limiter // Required: client buckets live here
	KeyFunc   KeyFunc            // Optional: defaults to RemoteIP
	KeyPrefix string             // Optional: defaults to "client:"
	Logger    *slog.Logger       // Optional
}

// NewRateLimiter creates a new rate limiting middleware
func NewRateLimiter(config Config) (*RateLimiter, error) {
	if config.Limiter == nil {
		return nil, ErrNilLimiter
	}
	if config.KeyFunc == nil {
		config.KeyFunc = RemoteIP()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "client:"
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	return &RateLimiter{
		limiter: config.Limiter,
		keyFunc: config.KeyFunc,
		prefix:  config.KeyPrefix,
		logger:  config.Logger,
	}, nil
}

type rejection struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}

// Middleware wraps an http.Handler with rate limiting
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := rl.keyFunc(r)
		if err != nil {
			rl.logger.WarnContext(r.Context(), "cannot identify client", logger.Error(err))
			writeJSON(w, http.StatusBadRequest, rejection{
				Error:   "unidentified_client",
				Message: "The request does not identify a client.",
			})
			return
		}

		decision := rl.limiter.Consume(rl.prefix+key, 1)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			retryAfter := int64(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeJSON(w, http.StatusTooManyRequests, rejection{
				Error:        "rate_limit_exceeded",
				Message:      "Too many requests. Please try again later.",
				RetryAfterMs: decision.RetryAfter.Milliseconds(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
