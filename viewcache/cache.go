// Package viewcache keeps server-rendered view data in redis, keyed by
// request path, and drops it when an auth change makes it stale.
package viewcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when nothing is cached for the path.
var ErrMiss = errors.New("view cache miss")

const scanBatch = 100

// Cache implements auth.Revalidator.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger auth.Logger
}

// New returns a Cache storing entries under <prefix>:view:<path>.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "pondana"
	}
	return &Cache{
		redis:  client,
		prefix: prefix + ":view:",
		ttl:    ttl,
		logger: auth.DefaultLogger(),
	}
}

func (c *Cache) WithLogger(logger auth.Logger) *Cache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Get decodes the entry cached for path into dst.
func (c *Cache) Get(ctx context.Context, path string, dst any) error {
	raw, err := c.redis.Get(ctx, c.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("view cache get %s: %w", path, err)
	}
	return json.Unmarshal(raw, dst)
}

// Set stores value for path.
func (c *Cache) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("view cache encode %s: %w", path, err)
	}
	return c.redis.Set(ctx, c.key(path), raw, c.ttl).Err()
}

// Remember returns the cached entry for path or builds, stores and returns
// a fresh one. Cache failures fall back to build.
func (c *Cache) Remember(ctx context.Context, path string, dst any, build func() (any, error)) error {
	err := c.Get(ctx, path, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("view cache read %s: %v", path, err)
	}

	value, err := build()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, path, value); err != nil {
		c.logger.Warn("view cache write %s: %v", path, err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Revalidate drops the entry for path. With auth.ScopeLayout it also drops
// every entry nested under path.
func (c *Cache) Revalidate(ctx context.Context, path string, scope auth.RevalidateScope) error {
	path = normalize(path)

	if scope != auth.ScopeLayout {
		return c.redis.Del(ctx, c.key(path)).Err()
	}

	purged, err := c.redis.Del(ctx, c.key(path)).Result()
	if err != nil {
		return fmt.Errorf("view cache purge %s: %w", path, err)
	}

	// nested entries only: /settings must not take /settingsfoo with it
	nested := globEscape(c.prefix + strings.TrimSuffix(path, "/") + "/")
	pattern := nested + "*"
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("view cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("view cache purge %s: %w", path, err)
			}
			purged += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("view cache revalidated %s (%s), %d entries", path, scope, purged)
	return nil
}

func (c *Cache) key(path string) string {
	return c.prefix + normalize(path)
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

var globReplacer = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// globEscape quotes the characters SCAN treats as a pattern.
func globEscape(s string) string {
	return globReplacer.Replace(s)
}
