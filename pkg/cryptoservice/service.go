package cryptoservice

import "context"

// Operation names, also used as rate limit keys.
const (
	OpEncrypt     = "encrypt"
	OpDecrypt     = "decrypt"
	OpHash        = "hash"
	OpVerifyHash  = "verify_hash"
	OpGenerateKey = "generate_key"
)

// Operations lists every operation a Service performs.
var Operations = []string{OpEncrypt, OpDecrypt, OpHash, OpVerifyHash, OpGenerateKey}

// Service is the crypto facade. Implementations and decorators are
// interchangeable; decorators wrap another Service and add one concern.
type Service interface {
	Encrypt(ctx context.Context, plaintext, key []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext, key []byte) ([]byte, error)
	Hash(ctx context.Context, data []byte) ([]byte, error)
	VerifyHash(ctx context.Context, data, digest []byte) (bool, error)
	GenerateKey(ctx context.Context, size int) ([]byte, error)
}

func validKeySize(size int) bool {
	switch size {
	case 16, 24, 32:
		return true
	}
	return false
}
