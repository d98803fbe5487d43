package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by ResultCache implementations.
var (
	// ErrNotFound is returned by Get when no entry exists for the key
	ErrNotFound = errors.New("cache entry not found")

	// ErrExpired is returned by Get when the entry existed but its TTL has
	// elapsed. Implementations remove the entry as part of the lookup, so a
	// repeated Get returns ErrNotFound.
	ErrExpired = errors.New("cache entry expired")
)

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	// Size is the current number of entries
	Size int `json:"size"`

	// MaxSize is the configured capacity
	MaxSize int `json:"max_size"`

	// TTL is the configured entry lifetime
	TTL time.Duration `json:"ttl"`

	// Hits and Misses count lookups since the cache was created. Expired
	// lookups count as misses.
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`

	// HitRatio is Hits / (Hits + Misses), 0 until the first lookup
	HitRatio float64 `json:"hit_ratio"`

	// Evictions counts entries dropped to make room for new ones
	Evictions int64 `json:"evictions"`

	// Expirations counts entries dropped because their TTL elapsed
	Expirations int64 `json:"expirations"`
}

// ResultCache stores serialized query results keyed by Key fingerprints.
// This allows using in-memory, Redis, or other cache backends.
// All methods accept context.Context for tracing and cancellation.
type ResultCache interface {
	// Get returns the cached result for the key. It returns ErrNotFound
	// when no entry exists and ErrExpired when the entry's TTL has elapsed;
	// both count as misses. A hit marks the entry most recently used.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a result under the key. An existing entry for the key is
	// replaced and its TTL restarts.
	Put(ctx context.Context, key string, result []byte) error

	// Clear drops every entry. Lookup counters are not reset.
	Clear(ctx context.Context) error

	// Stats returns a snapshot of cache effectiveness.
	Stats() Stats
}
