package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStorage keeps items for one browser profile in a redis hash, so every
// tab of that profile reads the same session.
type RedisStorage struct {
	redis  redis.UniversalClient
	key    string
	maxAge time.Duration
}

// NewRedisStorage scopes a Storage to profileID under prefix. maxAge is
// refreshed on every write, zero disables expiry.
func NewRedisStorage(client redis.UniversalClient, prefix, profileID string, maxAge time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = "pondana:storage"
	}
	return &RedisStorage{
		redis:  client,
		key:    fmt.Sprintf("%s:%s", prefix, profileID),
		maxAge: maxAge,
	}
}

func (s *RedisStorage) GetItem(ctx context.Context, key string) (string, error) {
	val, err := s.redis.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrItemNotFound
		}
		return "", fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return val, nil
}

func (s *RedisStorage) SetItem(ctx context.Context, key, value string) error {
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.maxAge > 0 {
		pipe.Expire(ctx, s.key, s.maxAge)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.redis.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}
