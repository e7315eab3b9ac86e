// Package api exposes the limiter and the vault over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KanavDutta/cryptofence/middleware"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig collects what the router serves. Only Handler is required.
type RouterConfig struct {
	Handler     *Handler
	Metrics     MetricsProvider
	Gatherer    prometheus.Gatherer
	ClientLimit *middleware.RateLimiter
	Health      HealthChecker
	Logger      *slog.Logger
}

// NewRouter builds the chi router for the service.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	r.Get("/health", healthHandler(cfg.Health))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", NewMetricsHandler(cfg.Metrics))
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics/prometheus", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.ClientLimit != nil {
			r.Use(cfg.ClientLimit.Middleware)
		}
		cfg.Handler.Routes(r)
	})

	return r
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{
			"status":  "healthy",
			"service": "cryptofence",
			"version": Version,
		}
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				body["status"] = "unhealthy"
				body["error"] = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, body)
				return
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
