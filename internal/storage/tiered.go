package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const defaultTTL = 300 * time.Second

// Store combines the fast cache and the durable blob tier. Reads prefer the
// cache and fall back to the blob store; writes establish durability first
// and then refresh the cache best-effort.
type Store struct {
	cache *Cache
	blob  *Blob
	ttl   time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultTTL overrides the TTL applied to cache writes when a save does
// not specify one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a tiered Store over the given cache and blob tiers.
func New(cache *Cache, blob *Blob, opts ...Option) (*Store, error) {
	if cache == nil {
		return nil, errors.New("storage: cache must not be nil")
	}
	if blob == nil {
		return nil, errors.New("storage: blob must not be nil")
	}
	s := &Store{cache: cache, blob: blob, ttl: defaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Cache exposes the fast tier for components that use its list operations
// directly, such as the conversation log.
func (s *Store) Cache() *Cache {
	return s.cache
}

// load resolves key through the cache with a durable fallback. An absent
// durable object yields ("", false, nil) so callers can substitute a typed
// empty value.
func (s *Store) load(ctx context.Context, key string) (string, bool, error) {
	val, hit, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		// The cache is an optimization; a broken cache read degrades to a
		// durable read.
		slog.Warn("cache read failed", "key", key, "err", err)
	case hit:
		return val, true, nil
	default:
		slog.Info("cache miss", "key", key)
	}

	body, err := s.blob.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Warn("key not found in durable store", "key", key)
			return "", false, nil
		}
		return "", false, err
	}
	return string(body), true, nil
}

// LoadString returns the value at key as text, or "" when no object exists.
func (s *Store) LoadString(ctx context.Context, key string) (string, error) {
	val, _, err := s.load(ctx, key)
	return val, err
}

// LoadBytes returns the value at key as raw bytes, or an empty slice when no
// object exists.
func (s *Store) LoadBytes(ctx context.Context, key string) ([]byte, error) {
	val, ok, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte{}, nil
	}
	return []byte(val), nil
}

// LoadJSON decodes the value at key into out. When no object exists, out is
// left untouched and no error is returned.
func (s *Store) LoadJSON(ctx context.Context, key string, out any) error {
	val, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return nil
}

// SaveOption configures a single save.
type SaveOption func(*saveConfig)

type saveConfig struct {
	ttl    time.Duration
	public bool
}

// WithTTL sets the cache TTL for this save only.
func WithTTL(ttl time.Duration) SaveOption {
	return func(c *saveConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// Public marks the durable object publicly readable.
func Public() SaveOption {
	return func(c *saveConfig) {
		c.public = true
	}
}

// Save writes value to the durable store and then mirrors it into the cache.
// The durable write must succeed; a cache refresh failure is logged and does
// not fail the save, since durability is already established.
func (s *Store) Save(ctx context.Context, key string, value []byte, opts ...SaveOption) error {
	cfg := saveConfig{ttl: s.ttl}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := s.blob.Put(ctx, key, value, cfg.public); err != nil {
		return err
	}

	if err := s.cache.Set(ctx, key, string(value), cfg.ttl); err != nil {
		slog.Warn("failed to refresh cache after durable write", "key", key, "err", err)
		return nil
	}
	slog.Info("updated cache", "key", key)
	return nil
}

// SaveJSON encodes v as JSON and saves it.
func (s *Store) SaveJSON(ctx context.Context, key string, v any, opts ...SaveOption) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return s.Save(ctx, key, body, opts...)
}
