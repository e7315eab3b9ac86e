package cryptoservice

import (
	"context"
	"fmt"
)

// RateLimiter decides whether an operation may run. A false result must mean
// the operation was admitted (and its token spent).
// *ratelimit.Limiter and *ratelimit.Adapter both satisfy it.
type RateLimiter interface {
	IsRateLimited(key string) bool
}

type rateLimited struct {
	next    Service
	limiter RateLimiter
}

// WithRateLimit asks limiter before every call, using the operation name as
// the key, and returns an error wrapping ErrRateLimited on denial.
func WithRateLimit(next Service, limiter RateLimiter) Service {
	return &rateLimited{next: next, limiter: limiter}
}

func (s *rateLimited) admit(op string) error {
	if s.limiter.IsRateLimited(op) {
		return fmt.Errorf("%w: %s", ErrRateLimited, op)
	}
	return nil
}

func (s *rateLimited) Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	if err := s.admit(OpEncrypt); err != nil {
		return nil, err
	}
	return s.next.Encrypt(ctx, plaintext, key)
}

func (s *rateLimited) Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	if err := s.admit(OpDecrypt); err != nil {
		return nil, err
	}
	return s.next.Decrypt(ctx, ciphertext, key)
}

func (s *rateLimited) Hash(ctx context.Context, data []byte) ([]byte, error) {
	if err := s.admit(OpHash); err != nil {
		return nil, err
	}
	return s.next.Hash(ctx, data)
}

func (s *rateLimited) VerifyHash(ctx context.Context, data, digest []byte) (bool, error) {
	if err := s.admit(OpVerifyHash); err != nil {
		return false, err
	}
	return s.next.VerifyHash(ctx, data, digest)
}

func (s *rateLimited) GenerateKey(ctx context.Context, size int) ([]byte, error) {
	if err := s.admit(OpGenerateKey); err != nil {
		return nil, err
	}
	return s.next.GenerateKey(ctx, size)
}
