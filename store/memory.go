package store

import (
	"context"
	"sync"
)

// MemoryStore provides thread-safe in-memory storage
type MemoryStore struct {
	items sync.Map // map[string][]byte
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// StoreData saves a copy of data under id, overwriting any previous value
func (s *MemoryStore) StoreData(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.items.Store(id, clone(data))
	return nil
}

// StoreDataIfAbsent saves a copy of data unless id is already taken
func (s *MemoryStore) StoreDataIfAbsent(ctx context.Context, id string, data []byte) (bool, error) {
	if id == "" {
		return false, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, loaded := s.items.LoadOrStore(id, clone(data))
	return !loaded, nil
}

// RetrieveData returns a copy of the data stored under id
func (s *MemoryStore) RetrieveData(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, ok := s.items.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(val.([]byte)), nil
}

// DeleteData removes the data stored under id
func (s *MemoryStore) DeleteData(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, loaded := s.items.LoadAndDelete(id); !loaded {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of stored items
func (s *MemoryStore) Len() int {
	n := 0
	s.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear removes all items
func (s *MemoryStore) Clear() {
	s.items.Range(func(key, _ any) bool {
		s.items.Delete(key)
		return true
	})
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
