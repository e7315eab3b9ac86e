package cryptoservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KanavDutta/cryptofence/logger"
)

type logging struct {
	next   Service
	logger *slog.Logger
}

// WithLogging records one structured entry per call: operation, input size,
// duration and outcome. Payloads and keys are never logged.
func WithLogging(next Service, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &logging{next: next, logger: logger.With(slog.String("component", "cryptoservice"))}
}

func (s *logging) log(ctx context.Context, op string, size int, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("operation", op),
		slog.Int("bytes", size),
		slog.Duration("duration", time.Since(start)),
	}

	switch {
	case err == nil:
		s.logger.LogAttrs(ctx, slog.LevelDebug, "crypto operation completed", attrs...)
	case errors.Is(err, ErrRateLimited):
		s.logger.LogAttrs(ctx, slog.LevelWarn, "crypto operation rate limited", attrs...)
	default:
		s.logger.LogAttrs(ctx, slog.LevelError, "crypto operation failed", append(attrs, logger.Error(err))...)
	}
}

func (s *logging) Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	start := time.Now()
	out, err := s.next.Encrypt(ctx, plaintext, key)
	s.log(ctx, OpEncrypt, len(plaintext), start, err)
	return out, err
}

func (s *logging) Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	start := time.Now()
	out, err := s.next.Decrypt(ctx, ciphertext, key)
	s.log(ctx, OpDecrypt, len(ciphertext), start, err)
	return out, err
}

func (s *logging) Hash(ctx context.Context, data []byte) ([]byte, error) {
	start := time.Now()
	out, err := s.next.Hash(ctx, data)
	s.log(ctx, OpHash, len(data), start, err)
	return out, err
}

func (s *logging) VerifyHash(ctx context.Context, data, digest []byte) (bool, error) {
	start := time.Now()
	ok, err := s.next.VerifyHash(ctx, data, digest)
	s.log(ctx, OpVerifyHash, len(data), start, err)
	return ok, err
}

func (s *logging) GenerateKey(ctx context.Context, size int) ([]byte, error) {
	start := time.Now()
	out, err := s.next.GenerateKey(ctx, size)
	s.log(ctx, OpGenerateKey, size, start, err)
	return out, err
}
