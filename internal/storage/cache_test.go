package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	getOut    *redis.StringCmd
	setOut    *redis.StatusCmd
	lrangeOut *redis.StringSliceCmd
	rpushOut  *redis.IntCmd

	lastGetKey   string
	lastSetKey   string
	lastSetValue interface{}
	lastSetTTL   time.Duration
	lastPushKey  string
	lastPushVals []interface{}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.lastGetKey = key
	return f.getOut
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.lastSetKey = key
	f.lastSetValue = value
	f.lastSetTTL = expiration
	if f.setOut != nil {
		return f.setOut
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) LRange(_ context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	return f.lrangeOut
}

func (f *fakeRedis) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.lastPushKey = key
	f.lastPushVals = values
	if f.rpushOut != nil {
		return f.rpushOut
	}
	return redis.NewIntResult(int64(len(values)), nil)
}

func mustNewCache(t *testing.T, api cacheAPI) *Cache {
	t.Helper()
	c, err := NewCache(api, "test")
	require.NoError(t, err)
	return c
}

func TestCacheGet_Hit(t *testing.T) {
	f := &fakeRedis{getOut: redis.NewStringResult("value", nil)}
	c := mustNewCache(t, f)

	val, hit, err := c.Get(context.Background(), "some/key")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "value", val)
	require.Equal(t, "test:some/key", f.lastGetKey)
}

func TestCacheGet_Miss(t *testing.T) {
	f := &fakeRedis{getOut: redis.NewStringResult("", redis.Nil)}
	c := mustNewCache(t, f)

	_, hit, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheGet_Error(t *testing.T) {
	f := &fakeRedis{getOut: redis.NewStringResult("", errors.New("boom"))}
	c := mustNewCache(t, f)

	_, _, err := c.Get(context.Background(), "key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cache get")
}

func TestCacheSet_AppliesNamespaceAndTTL(t *testing.T) {
	f := &fakeRedis{}
	c := mustNewCache(t, f)

	require.NoError(t, c.Set(context.Background(), "key", "v", 42*time.Second))
	require.Equal(t, "test:key", f.lastSetKey)
	require.Equal(t, "v", f.lastSetValue)
	require.Equal(t, 42*time.Second, f.lastSetTTL)
}

func TestCacheListFetch_MissingKeyIsEmpty(t *testing.T) {
	f := &fakeRedis{lrangeOut: redis.NewStringSliceResult(nil, nil)}
	c := mustNewCache(t, f)

	vals, err := c.ListFetch(context.Background(), "conv")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestCacheListAppend_PreservesOrder(t *testing.T) {
	f := &fakeRedis{}
	c := mustNewCache(t, f)

	require.NoError(t, c.ListAppend(context.Background(), "conv", "a", "b"))
	require.Equal(t, "test:conv", f.lastPushKey)
	require.Equal(t, []interface{}{"a", "b"}, f.lastPushVals)
}

func TestCacheListAppend_NoValuesIsNoop(t *testing.T) {
	f := &fakeRedis{}
	c := mustNewCache(t, f)

	require.NoError(t, c.ListAppend(context.Background(), "conv"))
	require.Empty(t, f.lastPushKey)
}

func TestNewCache_Validation(t *testing.T) {
	_, err := NewCache(nil, "test")
	require.Error(t, err)

	_, err = NewCache(&fakeRedis{}, "  ")
	require.Error(t, err)
}
