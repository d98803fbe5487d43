package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-sqlguard/cache"
)

const testKey = "test-key"

func TestCacheDefaults(t *testing.T) {
	c := New()

	stats := c.Stats()
	assert.Equal(t, DefaultMaxSize, stats.MaxSize)
	assert.Equal(t, DefaultTTL, stats.TTL)
	assert.Equal(t, 0, stats.Size)
}

func TestCachePutGet(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Put(ctx, testKey, []byte(`[{"id":1}]`)))

	got, err := c.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":1}]`), got)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCacheGetMiss(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestCacheLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 2, TTL: time.Hour})

	require.NoError(t, c.Put(ctx, "a", []byte("ra")))
	require.NoError(t, c.Put(ctx, "b", []byte("rb")))
	require.NoError(t, c.Put(ctx, "c", []byte("rc")))

	// a was least recently used and must be gone.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("rb"), got)

	got, err = c.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []byte("rc"), got)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestCacheGetRefreshesRecency(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 2, TTL: time.Hour})

	require.NoError(t, c.Put(ctx, "a", []byte("ra")))
	require.NoError(t, c.Put(ctx, "b", []byte("rb")))

	// Touch a so b becomes the eviction candidate.
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "c", []byte("rc")))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 10, TTL: 50 * time.Millisecond})

	require.NoError(t, c.Put(ctx, testKey, []byte("result")))

	time.Sleep(100 * time.Millisecond)

	// First lookup reports the expiry and removes the entry.
	_, err := c.Get(ctx, testKey)
	assert.ErrorIs(t, err, cache.ErrExpired)

	// Second lookup no longer finds it.
	_, err = c.Get(ctx, testKey)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Expirations)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCachePutReplacesExisting(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Put(ctx, testKey, []byte("old")))
	require.NoError(t, c.Put(ctx, testKey, []byte("new")))

	got, err := c.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
}

func TestCachePutRestartsTTL(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 10, TTL: 300 * time.Millisecond})

	require.NoError(t, c.Put(ctx, testKey, []byte("v1")))
	time.Sleep(200 * time.Millisecond)

	// Replacing the entry restarts its TTL.
	require.NoError(t, c.Put(ctx, testKey, []byte("v2")))
	time.Sleep(200 * time.Millisecond)

	got, err := c.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Put(ctx, "a", []byte("ra")))
	require.NoError(t, c.Put(ctx, "b", []byte("rb")))

	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Clear(ctx))

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	// Lookup counters survive a clear.
	assert.Equal(t, int64(1), stats.Hits)

	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCacheHitRatio(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Put(ctx, testKey, []byte("r")))

	_, err := c.Get(ctx, testKey)
	require.NoError(t, err)
	_, err = c.Get(ctx, "absent")
	require.Error(t, err)

	stats := c.Stats()
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)
}

func TestCachePeriodicSweep(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 500, TTL: 50 * time.Millisecond})

	for i := 0; i < sweepEvery-1; i++ {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("key-%d", i), []byte("r")))
	}

	time.Sleep(100 * time.Millisecond)

	// The sweep-triggering insertion reclaims everything that expired.
	require.NoError(t, c.Put(ctx, "fresh", []byte("r")))

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(sweepEvery-1), stats.Expirations)
}

func TestCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewWithConfig(Config{MaxSize: 100, TTL: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			for j := 0; j < 50; j++ {
				_ = c.Put(ctx, key, []byte("r"))
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, 5, stats.Size)
}