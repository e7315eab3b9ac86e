package cryptoservice

import "errors"

var (
	// ErrRateLimited is returned when the rate limiter rejects an operation
	ErrRateLimited = errors.New("operation rate limited")

	// ErrInvalidInput is returned for empty or malformed payloads
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidKeySize is returned for keys that are not 16, 24 or 32 bytes
	ErrInvalidKeySize = errors.New("key must be 16, 24 or 32 bytes")

	// ErrDecryptionFailed is returned when a ciphertext cannot be authenticated
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrRecordExists is returned when sealing under an id that is already taken
	ErrRecordExists = errors.New("record already exists")
)
