package security

import (
	"container/list"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultRateLimitMaxRequests is the number of requests an identity may
	// make inside one window
	DefaultRateLimitMaxRequests = 100

	// DefaultRateLimitWindow is the sliding window length
	DefaultRateLimitWindow = 60 * time.Second

	// DefaultRateLimitMaxIdentities caps how many distinct identities are
	// tracked at once. Beyond the cap the least recently seen identity is
	// evicted, which prevents unbounded memory growth when identities are
	// attacker-controlled.
	DefaultRateLimitMaxIdentities = 10000

	// rateLimitCleanupInterval is how often fully expired identities are
	// swept out in the background
	rateLimitCleanupInterval = 5 * time.Minute
)

// RateLimiterConfig holds rate limiter settings
type RateLimiterConfig struct {
	// MaxRequests is the number of requests allowed per identity per window.
	// Default: 100
	MaxRequests int

	// Window is the sliding window length.
	// Default: 60s
	Window time.Duration

	// MaxIdentities caps the number of tracked identities.
	// Default: 10000
	MaxIdentities int

	// Logger for limiter events. Defaults to slog.Default().
	Logger *slog.Logger
}

// rateLimitEntry tracks one identity's request timestamps inside the window.
type rateLimitEntry struct {
	identity   string
	timestamps []time.Time
}

// RateLimiter enforces a sliding-window request limit per identity.
//
// Each identity keeps the timestamps of its allowed requests. A request is
// admitted when, after expired timestamps are dropped, fewer than
// MaxRequests remain in the window. Denied requests are not recorded, so
// hammering a limited identity does not extend its penalty: the limit
// clears as soon as old timestamps age out.
//
// Tracked identities are bounded by an LRU list, and a background loop
// removes identities whose whole window has expired. Call Stop when the
// limiter is no longer needed.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lruList *list.List // front = most recently seen

	maxRequests   int
	window        time.Duration
	maxIdentities int

	logger *slog.Logger

	stopCleanup chan struct{}
	stopOnce    sync.Once

	totalAllowed   atomic.Int64
	totalBlocked   atomic.Int64
	totalEvictions atomic.Int64
	totalCleanups  atomic.Int64
}

// RateLimiterStats is a point-in-time snapshot of limiter configuration
// and activity.
type RateLimiterStats struct {
	TrackedIdentities int   `json:"tracked_identities"`
	MaxRequests       int   `json:"max_requests"`
	WindowSeconds     int   `json:"window_seconds"`
	TotalAllowed      int64 `json:"total_allowed"`
	TotalBlocked      int64 `json:"total_blocked"`
	TotalEvictions    int64 `json:"total_evictions"`
	TotalCleanups     int64 `json:"total_cleanups"`
}

// NewRateLimiter creates a limiter with the default limits.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return NewRateLimiterWithConfig(RateLimiterConfig{Logger: logger})
}

// NewRateLimiterWithConfig creates a limiter with explicit limits, applying
// defaults for zero values.
func NewRateLimiterWithConfig(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, rateLimitCleanupInterval)
}

// newRateLimiter exists so tests can shorten the cleanup interval.
func newRateLimiter(cfg RateLimiterConfig, cleanupInterval time.Duration) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultRateLimitMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}
	if cfg.MaxIdentities <= 0 {
		cfg.MaxIdentities = DefaultRateLimitMaxIdentities
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rl := &RateLimiter{
		entries:       make(map[string]*list.Element),
		lruList:       list.New(),
		maxRequests:   cfg.MaxRequests,
		window:        cfg.Window,
		maxIdentities: cfg.MaxIdentities,
		logger:        cfg.Logger,
		stopCleanup:   make(chan struct{}),
	}

	go rl.cleanupLoop(cleanupInterval)

	return rl
}

// Allow reports whether the identity may make a request now. Allowed
// requests are recorded against the window; denied ones are not.
func (rl *RateLimiter) Allow(identity string) bool {
	now := time.Now()
	windowStart := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	elem, ok := rl.entries[identity]
	if !ok {
		if len(rl.entries) >= rl.maxIdentities {
			rl.evictOldest()
		}
		elem = rl.lruList.PushFront(&rateLimitEntry{identity: identity})
		rl.entries[identity] = elem
	} else {
		rl.lruList.MoveToFront(elem)
	}

	entry := elem.Value.(*rateLimitEntry)

	// Drop timestamps that fell out of the window, reusing the backing array.
	kept := entry.timestamps[:0]
	for _, t := range entry.timestamps {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	entry.timestamps = kept

	if len(entry.timestamps) >= rl.maxRequests {
		rl.totalBlocked.Add(1)
		rl.logger.Debug("Rate limit exceeded",
			"identity", identity,
			"requests_in_window", len(entry.timestamps),
			"max_requests", rl.maxRequests)
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	rl.totalAllowed.Add(1)
	return true
}

// evictOldest removes the least recently seen identity.
// Caller must hold rl.mu.
func (rl *RateLimiter) evictOldest() {
	back := rl.lruList.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*rateLimitEntry)
	rl.lruList.Remove(back)
	delete(rl.entries, entry.identity)
	rl.totalEvictions.Add(1)
	rl.logger.Debug("Evicted least recently seen identity from rate limiter",
		"identity", entry.identity)
}

// Cleanup removes identities whose most recent request has aged out of the
// window. The background loop calls it periodically; tests may call it
// directly.
func (rl *RateLimiter) Cleanup() {
	windowStart := time.Now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var removed int
	for elem := rl.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*rateLimitEntry)
		if len(entry.timestamps) == 0 || !entry.timestamps[len(entry.timestamps)-1].After(windowStart) {
			rl.lruList.Remove(elem)
			delete(rl.entries, entry.identity)
			removed++
		}
		elem = prev
	}

	rl.totalCleanups.Add(1)
	if removed > 0 {
		rl.logger.Debug("Rate limiter cleanup",
			"removed", removed,
			"remaining", len(rl.entries))
	}
}

// cleanupLoop periodically sweeps expired identities until Stop is called.
func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop terminates the background cleanup goroutine. Safe to call more
// than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Stats returns a snapshot of limiter activity.
func (rl *RateLimiter) Stats() RateLimiterStats {
	rl.mu.Lock()
	tracked := len(rl.entries)
	rl.mu.Unlock()

	return RateLimiterStats{
		TrackedIdentities: tracked,
		MaxRequests:       rl.maxRequests,
		WindowSeconds:     int(rl.window.Seconds()),
		TotalAllowed:      rl.totalAllowed.Load(),
		TotalBlocked:      rl.totalBlocked.Load(),
		TotalEvictions:    rl.totalEvictions.Load(),
		TotalCleanups:     rl.totalCleanups.Load(),
	}
}
