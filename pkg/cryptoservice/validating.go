package cryptoservice

import (
	"context"
	"fmt"
)

type validating struct {
	next Service
}

// WithValidation rejects malformed requests before they reach next.
// Place it outside WithRateLimit so bad input does not spend tokens.
func WithValidation(next Service) Service {
	return &validating{next: next}
}

func (s *validating) Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: plaintext is empty", ErrInvalidInput)
	}
	if !validKeySize(len(key)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	return s.next.Encrypt(ctx, plaintext, key)
}

func (s *validating) Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: ciphertext is empty", ErrInvalidInput)
	}
	if !validKeySize(len(key)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	return s.next.Decrypt(ctx, ciphertext, key)
}

func (s *validating) Hash(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data is empty", ErrInvalidInput)
	}
	return s.next.Hash(ctx, data)
}

func (s *validating) VerifyHash(ctx context.Context, data, digest []byte) (bool, error) {
	if len(data) == 0 {
		return false, fmt.Errorf("%w: data is empty", ErrInvalidInput)
	}
	if len(digest) == 0 {
		return false, fmt.Errorf("%w: digest is empty", ErrInvalidInput)
	}
	return s.next.VerifyHash(ctx, data, digest)
}

func (s *validating) GenerateKey(ctx context.Context, size int) ([]byte, error) {
	if !validKeySize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, size)
	}
	return s.next.GenerateKey(ctx, size)
}
