package memory

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-sqlguard/cache"
	"github.com/giantswarm/mcp-sqlguard/instrumentation"
	"github.com/giantswarm/mcp-sqlguard/internal/util"
)

const (
	// DefaultMaxSize is the entry capacity when none is configured
	DefaultMaxSize = 1000

	// DefaultTTL is the entry lifetime when none is configured
	DefaultTTL = 300 * time.Second

	// sweepEvery is the number of insertions between full expiry sweeps.
	// Expired entries are otherwise removed lazily on lookup, so the sweep
	// only reclaims entries nobody asks for anymore.
	sweepEvery = 100

	// keyLogLength is the number of key characters included in debug logs
	keyLogLength = 8
)

// entry is one cached result.
type entry struct {
	key        string
	result     []byte
	createdAt  time.Time
	lastAccess time.Time
}

// Config holds cache settings
type Config struct {
	// MaxSize is the entry capacity. The least recently used entry is
	// evicted when an insert would exceed it.
	// Default: 1000
	MaxSize int

	// TTL is how long an entry stays valid after insertion. Hits refresh
	// recency, not the TTL.
	// Default: 300s
	TTL time.Duration

	// Logger for cache events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache is an in-memory ResultCache. Entries are evicted least recently
// used first when the cache is full, and removed lazily on lookup after
// their TTL elapses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	lruList *list.List // front = most recently used

	maxSize int
	ttl     time.Duration

	// insertions counts Puts toward the next full expiry sweep
	insertions int

	logger *slog.Logger

	// Instrumentation
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	// Atomic counters for lock-free access during stats and metric collection
	sizeAtomic  atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

// Compile-time interface check
var _ cache.ResultCache = (*Cache)(nil)

// New creates a cache with default capacity and TTL.
func New() *Cache {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a cache with explicit settings, applying defaults
// for zero values.
func NewWithConfig(cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		entries: make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
	}
}

// SetLogger sets a custom logger
func (c *Cache) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetInstrumentation sets OpenTelemetry instrumentation for the cache
func (c *Cache) SetInstrumentation(inst *instrumentation.Instrumentation) {
	c.mu.Lock()
	c.instrumentation = inst
	if inst != nil {
		c.tracer = inst.Tracer("cache")
	}
	c.sizeAtomic.Store(int64(len(c.entries)))
	c.mu.Unlock()

	if inst != nil {
		// Real-time cache size visibility for capacity planning
		if err := inst.RegisterCacheSizeCallback(func() int64 { return c.sizeAtomic.Load() }); err != nil {
			c.logger.Warn("Failed to register cache size callback", "error", err)
		}
	}
}

// Get returns the cached result for key. Expired entries are removed as
// part of the lookup and reported as ErrExpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.startCacheSpan(ctx, "get")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		c.recordCacheOperation(ctx, span, "get", err, startTime)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		err = cache.ErrNotFound
		return nil, err
	}

	e := elem.Value.(*entry)
	if time.Since(e.createdAt) > c.ttl {
		c.removeElement(elem)
		c.expirations.Add(1)
		c.misses.Add(1)
		err = cache.ErrExpired
		return nil, err
	}

	e.lastAccess = time.Now()
	c.lruList.MoveToFront(elem)
	c.hits.Add(1)
	return e.result, nil
}

// Put stores result under key. An existing entry for the key is replaced,
// the key becomes most recently used, and its TTL restarts.
func (c *Cache) Put(ctx context.Context, key string, result []byte) error {
	ctx, span := c.startCacheSpan(ctx, "put")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		c.recordCacheOperation(ctx, span, "put", err, startTime)
	}()

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}

	elem := c.lruList.PushFront(&entry{
		key:        key,
		result:     result,
		createdAt:  now,
		lastAccess: now,
	})
	c.entries[key] = elem
	c.sizeAtomic.Add(1)

	for len(c.entries) > c.maxSize {
		c.evictOldest()
	}

	c.insertions++
	if c.insertions%sweepEvery == 0 {
		c.sweepExpired(now)
	}

	return nil
}

// Clear drops every entry. Lookup counters are not reset.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lruList.Init()
	c.sizeAtomic.Store(0)

	c.logger.Debug("Cache cleared")
	return nil
}

// Stats returns a snapshot of cache effectiveness.
func (c *Cache) Stats() cache.Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return cache.Stats{
		Size:        size,
		MaxSize:     c.maxSize,
		TTL:         c.ttl,
		Hits:        hits,
		Misses:      misses,
		HitRatio:    ratio,
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// removeElement drops one entry. Caller must hold c.mu.
func (c *Cache) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	c.lruList.Remove(elem)
	delete(c.entries, e.key)
	c.sizeAtomic.Add(-1)
}

// evictOldest removes the least recently used entry. Caller must hold c.mu.
func (c *Cache) evictOldest() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.removeElement(back)
	c.evictions.Add(1)
	c.logger.Debug("Evicted cache entry",
		"key_prefix", util.SafeTruncate(e.key, keyLogLength),
		"age", time.Since(e.createdAt))
}

// sweepExpired drops every expired entry. Caller must hold c.mu.
func (c *Cache) sweepExpired(now time.Time) {
	var removed int
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if now.Sub(e.createdAt) > c.ttl {
			c.removeElement(elem)
			c.expirations.Add(1)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.logger.Debug("Swept expired cache entries",
			"removed", removed,
			"remaining", len(c.entries))
	}
}

// ============================================================
// Instrumentation Helpers
// ============================================================

// startCacheSpan starts a new span for a cache operation
func (c *Cache) startCacheSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("cache.%s", operation),
		trace.WithAttributes(
			attribute.String("operation", operation),
		))

	return ctx, span
}

// recordCacheOperation records metrics for a cache operation and sets span status
func (c *Cache) recordCacheOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if c.instrumentation == nil {
		return
	}

	durationMs := float64(time.Since(startTime).Milliseconds())
	result := "success"
	if err != nil {
		result = "miss"
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	} else {
		if span != nil {
			span.SetStatus(codes.Ok, "")
		}
	}

	c.instrumentation.Metrics().RecordCacheOperation(ctx, operation, result, durationMs)
}
