package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/KanavDutta/cryptofence/api"
	"github.com/KanavDutta/cryptofence/config"
	"github.com/KanavDutta/cryptofence/logger"
	"github.com/KanavDutta/cryptofence/metrics"
	"github.com/KanavDutta/cryptofence/middleware"
	"github.com/KanavDutta/cryptofence/pkg/cryptoservice"
	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
	"github.com/KanavDutta/cryptofence/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cryptofence:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithService("cryptofence"),
		logger.WithAttr(slog.String("env", cfg.Environment)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tracker, err := metrics.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	limiterOpts := []ratelimit.Option{
		ratelimit.WithLogger(log.With(slog.String("component", "ratelimit"))),
		ratelimit.WithObserver(tracker),
	}

	// Per-operation buckets from a file, or one shared domain budget
	var opsLimiter cryptoservice.RateLimiter
	if cfg.RateLimitsFile != "" {
		limiter, err := ratelimit.NewLimiter(append(limiterOpts, ratelimit.WithConfigFile(cfg.RateLimitsFile))...)
		if err != nil {
			return err
		}
		opsLimiter = limiter
		log.Info("per-operation rate limits loaded",
			slog.String("file", cfg.RateLimitsFile),
			slog.Any("buckets", limiter.Keys()),
		)
	} else {
		adapter, err := cfg.Adapter().CreateAdapter(limiterOpts...)
		if err != nil {
			return err
		}
		opsLimiter = adapter
		log.Info("domain rate limit configured",
			slog.String("domain", adapter.Domain()),
			slog.Int64("max_operations_per_minute", cfg.MaxOperationsPerMinute),
			slog.Duration("cooldown", adapter.CooldownPeriod()),
		)
	}

	storage, health, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	base := cryptoservice.NewStandard()
	svc := cryptoservice.New(base, opsLimiter, log)

	masterKey, err := cfg.MasterKey()
	if err != nil {
		return err
	}
	if masterKey == nil {
		// Drawn from the undecorated service so startup is not charged to the budget
		if masterKey, err = base.GenerateKey(ctx, 32); err != nil {
			return err
		}
		log.Warn("ENCRYPTION_KEY not set, using an ephemeral master key; sealed records will not survive a restart")
	}

	vault, err := cryptoservice.NewVault(svc, storage, masterKey)
	if err != nil {
		return err
	}

	// Caller-named buckets live apart from the operation budget and, having
	// unbounded keys, report no per-key metrics.
	checkLimiter, err := ratelimit.NewLimiter(
		ratelimit.WithDefaultBucket(cfg.CheckBucket()),
		ratelimit.WithLogger(log.With(slog.String("component", "check_limit"))),
		ratelimit.WithCleanupAge(cfg.IdleBucketTTL),
		ratelimit.WithCleanupInterval(cfg.BucketCleanupInterval),
	)
	if err != nil {
		return err
	}
	defer checkLimiter.StartBackgroundCleanup()()

	clientLimiter, err := ratelimit.NewLimiter(
		ratelimit.WithDefaultBucket(cfg.ClientBucket()),
		ratelimit.WithLogger(log.With(slog.String("component", "client_limit"))),
		ratelimit.WithCleanupAge(cfg.IdleBucketTTL),
		ratelimit.WithCleanupInterval(cfg.BucketCleanupInterval),
	)
	if err != nil {
		return err
	}
	defer clientLimiter.StartBackgroundCleanup()()
	keyFunc, err := middleware.ParseKeyFunc(cfg.ClientKey)
	if err != nil {
		return err
	}
	gate, err := middleware.NewRateLimiter(middleware.Config{
		Limiter: clientLimiter,
		KeyFunc: keyFunc,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:     api.NewHandler(checkLimiter, vault, log),
		Metrics:     tracker,
		Gatherer:    reg,
		ClientLimit: gate,
		Health:      health,
		Logger:      log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openStore returns the secure storage backend and, for Redis, a health checker.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, api.HealthChecker, error) {
	if cfg.RedisURL == "" {
		log.Warn("using in-memory secure storage (not suitable for production)")
		return store.NewMemoryStore(), nil, nil
	}

	redisStore, err := store.NewRedisStore(store.RedisConfig{URL: cfg.RedisURL, TTL: cfg.RedisTTL})
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		_ = redisStore.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("connected to redis secure storage")
	return redisStore, redisStore, nil
}
