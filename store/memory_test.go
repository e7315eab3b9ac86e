package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.StoreData(ctx, "key-1", []byte("sealed")))

	data, err := s.RetrieveData(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), data)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.DeleteData(ctx, "key-1"))
	_, err = s.RetrieveData(ctx, "key-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteData(ctx, "key-1"), ErrNotFound)
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	input := []byte("abc")
	require.NoError(t, s.StoreData(ctx, "k", input))
	input[0] = 'x'

	out, err := s.RetrieveData(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	out[1] = 'y'
	again, err := s.RetrieveData(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.StoreData(ctx, "", []byte("x")), ErrInvalidID)
	_, err := s.RetrieveData(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, s.DeleteData(ctx, ""), ErrInvalidID)
}

func TestMemoryStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.ErrorIs(t, s.StoreData(ctx, "k", []byte("x")), context.Canceled)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.StoreData(ctx, id, []byte(id)))
	}
	s.Clear()
	assert.Zero(t, s.Len())
	assert.NoError(t, s.Close())
}

func TestMemoryStore_StoreDataIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	stored, err := s.StoreDataIfAbsent(ctx, "k", []byte("first"))
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.StoreDataIfAbsent(ctx, "k", []byte("second"))
	require.NoError(t, err)
	assert.False(t, stored)

	data, err := s.RetrieveData(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	_, err = s.StoreDataIfAbsent(ctx, "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidID)
}
