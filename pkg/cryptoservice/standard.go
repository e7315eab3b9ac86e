package cryptoservice

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
)

// Standard implements Service with AES-GCM, SHA-256 and the system CSPRNG.
// Ciphertexts are nonce || sealed data.
type Standard struct {
	random io.Reader
}

var _ Service = (*Standard)(nil)

// NewStandard returns a Standard service reading randomness from crypto/rand.
func NewStandard() *Standard {
	return &Standard{random: rand.Reader}
}

func (s *Standard) Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return nil, fmt.Errorf("nonce generation failure: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Standard) Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	ns := aead.NonceSize()
	if len(ciphertext) < ns+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	plaintext, err := aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: message authentication failed", ErrDecryptionFailed)
	}
	return plaintext, nil
}

func (s *Standard) Hash(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (s *Standard) VerifyHash(ctx context.Context, data, digest []byte) (bool, error) {
	sum, err := s.Hash(ctx, data)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(sum, digest) == 1, nil
}

func (s *Standard) GenerateKey(ctx context.Context, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validKeySize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, size)
	}

	key := make([]byte, size)
	if _, err := io.ReadFull(s.random, key); err != nil {
		return nil, fmt.Errorf("key generation failure: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if !validKeySize(len(key)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("block cipher failure: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM failure: %w", err)
	}
	return aead, nil
}
