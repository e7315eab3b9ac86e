package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cryptofence:"

// RedisStore keeps items in Redis under a common key prefix
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // Zero keeps items until deleted
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// RedisConfig for creating a Redis store
type RedisConfig struct {
	URL      string        // Redis URL (e.g., "redis://:password@localhost:6379/0"), takes precedence over Addr
	Addr     string        // Redis address (e.g., "localhost:6379")
	Password string        // Redis password (empty for no auth)
	DB       int           // Redis database number
	TTL      time.Duration // Expiry for stored items, 0 for none
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	}
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis url: %v", ErrUnavailable, err)
		}
		opts = parsed
	}

	return NewRedisStoreFromClient(redis.NewClient(opts), config.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// StoreData saves data under id
func (s *RedisStore) StoreData(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// StoreDataIfAbsent saves data under id with SETNX
func (s *RedisStore) StoreDataIfAbsent(ctx context.Context, id string, data []byte) (bool, error) {
	if id == "" {
		return false, ErrInvalidID
	}
	stored, err := s.client.SetNX(ctx, keyPrefix+id, data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return stored, nil
}

// RetrieveData returns the data stored under id
func (s *RedisStore) RetrieveData(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// DeleteData removes the data stored under id
func (s *RedisStore) DeleteData(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	removed, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes all keys under the store prefix
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return iter.Err()
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
