package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps resumable keys in Redis so every checkout instance sees them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// SetIfAbsent implements Store with SET NX, so concurrent callers converge on
// the first value written.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (string, error) {
	fullKey := s.prefix + key

	ok, err := s.client.SetNX(ctx, fullKey, value, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store resumable key: %w", err)
	}
	if ok {
		return value, nil
	}

	existing, err := s.client.Get(ctx, fullKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return s.SetIfAbsent(ctx, key, value, ttl)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read resumable key: %w", err)
	}
	return existing, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete resumable key: %w", err)
	}
	return nil
}
