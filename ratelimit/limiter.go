package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned once a window's budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures talking to redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Policy is one fixed-window budget.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter enforces Policies against redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Limiter backed by redisClient. prefix namespaces every key.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "pondana:rl"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Hit records one attempt and fails with ErrRateLimited when it exceeds the
// policy budget. A zero or negative limit disables the policy.
func (l *Limiter) Hit(ctx context.Context, policy Policy, identifier string) error {
	if policy.Limit <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(policy, identifier), policy.Window)
	if err != nil {
		return err
	}
	if count > int64(policy.Limit) {
		return ErrRateLimited
	}
	return nil
}

// Check reports ErrRateLimited when the budget is already spent, without
// recording an attempt.
func (l *Limiter) Check(ctx context.Context, policy Policy, identifier string) error {
	if policy.Limit <= 0 {
		return nil
	}

	count, err := l.redis.Get(ctx, l.key(policy, identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	if count >= int64(policy.Limit) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter, e.g. after a successful sign-in.
func (l *Limiter) Reset(ctx context.Context, policy Policy, identifier string) error {
	if err := l.redis.Del(ctx, l.key(policy, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current count in the window. Missing keys count as
// zero.
func (l *Limiter) Attempts(ctx context.Context, policy Policy, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(policy, identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) key(policy Policy, identifier string) string {
	return l.prefix + ":" + policy.Name + ":" + strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}

	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
