package ratelimit

import (
	"fmt"
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Limiter.
type Option func(*Limiter) error

// WithDefaultBucket sets the configuration used for keys that were never
// explicitly configured.
func WithDefaultBucket(config BucketConfig) Option {
	return func(l *Limiter) error {
		if err := config.Validate(); err != nil {
			return err
		}
		l.defaults = config
		return nil
	}
}

// WithConfig applies a file configuration: its defaults replace the default
// bucket and every listed bucket is configured when the limiter is built.
func WithConfig(config *Config) Option {
	return func(l *Limiter) error {
		if config == nil {
			return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
		}
		if err := config.Validate(); err != nil {
			return err
		}
		l.defaults = config.Defaults
		for key, bucket := range config.Buckets {
			l.preset[key] = bucket
		}
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(l *Limiter) error {
		config, err := LoadConfigFromFile(path)
		if err != nil {
			return err
		}
		return WithConfig(config)(l)
	}
}

// WithClock replaces time.Now, mainly so tests can drive a simulated clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) error {
		if now == nil {
			return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfig)
		}
		l.now = now
		return nil
	}
}

// WithLogger sets the logger used for configuration changes and denials.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
		}
		l.logger = logger
		return nil
	}
}

// WithObserver registers an observer notified of every decision.
func WithObserver(observer Observer) Option {
	return func(l *Limiter) error {
		if observer == nil {
			return fmt.Errorf("%w: observer cannot be nil", ErrInvalidConfig)
		}
		l.observer = observer
		return nil
	}
}

// WithCleanupAge enables removal of auto-created buckets idle for longer
// than age. Zero disables cleanup.
func WithCleanupAge(age time.Duration) Option {
	return func(l *Limiter) error {
		if age < 0 {
			return fmt.Errorf("%w: cleanup age cannot be negative", ErrInvalidConfig)
		}
		l.cleanupAge = age
		return nil
	}
}

// WithCleanupInterval sets how often StartBackgroundCleanup runs.
func WithCleanupInterval(interval time.Duration) Option {
	return func(l *Limiter) error {
		if interval <= 0 {
			return fmt.Errorf("%w: cleanup interval must be positive", ErrInvalidConfig)
		}
		l.cleanupInterval = interval
		return nil
	}
}
