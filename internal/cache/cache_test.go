package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, maxKeys int) Cache {
	t.Helper()
	c := NewMemoryCache(&Config{
		Provider:        "memory",
		TTL:             time.Minute,
		MaxKeys:         maxKeys,
		CleanupInterval: time.Hour, // sweeps disabled for deterministic tests
	}, zap.NewNop())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	got, found := c.Get(ctx, "key")
	require.True(t, found)
	assert.Equal(t, "value", got)

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, found := c.Get(ctx, "short")
	assert.False(t, found, "expired entries must read as misses")
	assert.False(t, c.Exists(ctx, "short"))
}

func TestMemoryCacheDelete(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	_, found := c.Get(ctx, "key")
	assert.False(t, found)

	assert.NoError(t, c.Delete(ctx, "never-existed"), "deleting a missing key is not an error")
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "badges:collection:1", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "badges:collection:2", "b", time.Minute))
	require.NoError(t, c.Set(ctx, "other:1", "c", time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "badges:collection:*"))

	_, found := c.Get(ctx, "badges:collection:1")
	assert.False(t, found)
	_, found = c.Get(ctx, "badges:collection:2")
	assert.False(t, found)
	_, found = c.Get(ctx, "other:1")
	assert.True(t, found)
}

func TestMemoryCacheEviction(t *testing.T) {
	c := newTestCache(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key%d", i), i, time.Minute))
	}
	// Touch key0 so it is the most recently used.
	_, found := c.Get(ctx, "key0")
	require.True(t, found)

	require.NoError(t, c.Set(ctx, "key3", 3, time.Minute))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Keys, int64(3), "eviction keeps the cache within max keys")

	_, found = c.Get(ctx, "key0")
	assert.True(t, found, "recently used entry survives eviction")
}

func TestMemoryCacheGetMultiple(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

	values, err := c.GetMultiple(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, "1", values["a"])
	assert.Equal(t, "2", values["b"])
}

func TestMemoryCacheStats(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "v", time.Minute))
	c.Get(ctx, "key")
	c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 0.5, stats.HitRatio, 0.001)
}

func TestMemoryCacheClear(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, c.Clear(ctx))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Keys)
}

func TestNewCacheProviderSelection(t *testing.T) {
	t.Run("memory provider", func(t *testing.T) {
		c, err := NewCache(&Config{Provider: "memory", TTL: time.Minute, MaxKeys: 10}, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()
		assert.NoError(t, c.Health(context.Background()))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewCache(&Config{Provider: "memcached"}, zap.NewNop())
		assert.Error(t, err)
	})
}
