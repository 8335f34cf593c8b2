package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheAPI is the minimal Redis interface required by Cache.
// *redis.Client from go-redis satisfies this interface.
type cacheAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Cache is the fast ephemeral tier. All keys are scoped under a namespace so
// multiple environments can share one Redis instance.
type Cache struct {
	api       cacheAPI
	namespace string
}

// NewCache creates a Cache scoped to the given namespace.
func NewCache(api cacheAPI, namespace string) (*Cache, error) {
	if api == nil {
		return nil, errors.New("storage: cache api must not be nil")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, errors.New("storage: cache namespace must not be empty")
	}
	return &Cache{api: api, namespace: namespace}, nil
}

func (c *Cache) scoped(key string) string {
	return c.namespace + ":" + key
}

// Get returns the cached value for key. The second return is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.api.Get(ctx, c.scoped(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: cache get %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.api.Set(ctx, c.scoped(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("storage: cache set %q: %w", key, err)
	}
	return nil
}

// ListFetch returns the full list stored under key, oldest first. A missing
// key yields an empty list.
func (c *Cache) ListFetch(ctx context.Context, key string) ([]string, error) {
	vals, err := c.api.LRange(ctx, c.scoped(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: cache list fetch %q: %w", key, err)
	}
	return vals, nil
}

// ListAppend pushes values onto the tail of the list stored under key,
// preserving the order given.
func (c *Cache) ListAppend(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := c.api.RPush(ctx, c.scoped(key), args...).Err(); err != nil {
		return fmt.Errorf("storage: cache list append %q: %w", key, err)
	}
	return nil
}
