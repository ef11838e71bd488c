package clientdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisCache stores msgpack-encoded entries in Redis under a namespace.
// Expiry is delegated to Redis TTLs.
type RedisCache struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisCache creates a Redis-backed cache. If namespace is empty, it uses "prices".
func NewRedisCache(rdb *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = "prices"
	}
	return &RedisCache{rdb: rdb, namespace: namespace}
}

// Load implements prices.Cache. Corrupted entries are deleted and reported as misses.
func (c *RedisCache) Load(ctx context.Context, key string, dst interface{}) (bool, error) {
	k := c.cacheKey(key)

	b, err := c.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", k, err)
	}

	if err := msgpack.Unmarshal(b, dst); err != nil {
		_ = c.rdb.Del(ctx, k).Err()
		return false, nil
	}
	return true, nil
}

// Store implements prices.Cache.
func (c *RedisCache) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	k := c.cacheKey(key)
	if err := c.rdb.Set(ctx, k, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", k, err)
	}
	return nil
}

// cacheKey generates the namespaced Redis key.
func (c *RedisCache) cacheKey(key string) string {
	return c.namespace + ":" + safe(key)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
