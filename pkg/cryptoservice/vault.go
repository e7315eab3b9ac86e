package cryptoservice

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// SecureStorage is the opaque blob store the vault writes ciphertexts to.
// store.MemoryStore and store.RedisStore satisfy it.
type SecureStorage interface {
	StoreData(ctx context.Context, id string, data []byte) error
	StoreDataIfAbsent(ctx context.Context, id string, data []byte) (bool, error)
	RetrieveData(ctx context.Context, id string) ([]byte, error)
	DeleteData(ctx context.Context, id string) error
}

// Vault encrypts records with a per-record key and keeps the ciphertexts in
// SecureStorage. Record keys are derived from the master key with HKDF-SHA256,
// using the record id as info, so no key material is ever stored.
type Vault struct {
	service   Service
	storage   SecureStorage
	masterKey []byte
}

// NewVault creates a vault. masterKey must be at least 16 bytes; it is copied.
func NewVault(service Service, storage SecureStorage, masterKey []byte) (*Vault, error) {
	if service == nil || storage == nil {
		return nil, fmt.Errorf("%w: vault needs a service and a storage backend", ErrInvalidInput)
	}
	if len(masterKey) < 16 {
		return nil, fmt.Errorf("%w: master key is %d bytes, need at least 16", ErrInvalidKeySize, len(masterKey))
	}

	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Vault{service: service, storage: storage, masterKey: key}, nil
}

// Seal encrypts plaintext and stores it under id. An empty id gets a random
// UUID. It returns the id the record was stored under. Existing records are
// never overwritten: sealing a taken id fails with ErrRecordExists.
func (v *Vault) Seal(ctx context.Context, id string, plaintext []byte) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	key, err := v.recordKey(id)
	if err != nil {
		return "", err
	}
	defer zero(key)

	ciphertext, err := v.service.Encrypt(ctx, plaintext, key)
	if err != nil {
		return "", fmt.Errorf("seal %s: %w", id, err)
	}
	stored, err := v.storage.StoreDataIfAbsent(ctx, id, ciphertext)
	if err != nil {
		return "", fmt.Errorf("seal %s: %w", id, err)
	}
	if !stored {
		return "", fmt.Errorf("seal %s: %w", id, ErrRecordExists)
	}
	return id, nil
}

// Open loads and decrypts the record stored under id.
func (v *Vault) Open(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: record id is empty", ErrInvalidInput)
	}

	ciphertext, err := v.storage.RetrieveData(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	key, err := v.recordKey(id)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	plaintext, err := v.service.Decrypt(ctx, ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return plaintext, nil
}

// Destroy deletes the record stored under id.
func (v *Vault) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: record id is empty", ErrInvalidInput)
	}
	if err := v.storage.DeleteData(ctx, id); err != nil {
		return fmt.Errorf("destroy %s: %w", id, err)
	}
	return nil
}

func (v *Vault) recordKey(id string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, v.masterKey, nil, []byte(id)), key); err != nil {
		return nil, fmt.Errorf("key derivation failure: %w", err)
	}
	return key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
