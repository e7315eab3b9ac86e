package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no data is stored under an id
	ErrNotFound = errors.New("secure storage: item not found")

	// ErrInvalidID is returned for empty identifiers
	ErrInvalidID = errors.New("secure storage: id cannot be empty")

	// ErrUnavailable is returned when the backend cannot be reached
	ErrUnavailable = errors.New("secure storage: backend unavailable")
)

// Store is an opaque blob store keyed by identifier. Callers hand it bytes
// that are already encrypted; a Store never inspects what it holds.
type Store interface {
	StoreData(ctx context.Context, id string, data []byte) error
	// StoreDataIfAbsent saves data only if nothing is stored under id yet.
	// It reports false, with a nil error, when id was taken.
	StoreDataIfAbsent(ctx context.Context, id string, data []byte) (bool, error)
	RetrieveData(ctx context.Context, id string) ([]byte, error)
	DeleteData(ctx context.Context, id string) error
	Close() error
}
