// Package mock provides a mock implementation of the result cache for testing.
package mock

import (
	"context"
	"sync"

	"github.com/giantswarm/mcp-sqlguard/cache"
)

// MockCache is a mock implementation of ResultCache for testing.
// Override the Func fields to inject behavior; the defaults act as a
// plain map-backed cache with no TTL or eviction.
type MockCache struct {
	mu      sync.RWMutex
	entries map[string][]byte

	GetFunc   func(key string) ([]byte, error)
	PutFunc   func(key string, result []byte) error
	ClearFunc func() error
	StatsFunc func() cache.Stats

	CallCounts map[string]int
}

// Compile-time interface check
var _ cache.ResultCache = (*MockCache)(nil)

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	m := &MockCache{
		entries:    make(map[string][]byte),
		CallCounts: make(map[string]int),
	}

	// Set default implementations
	m.GetFunc = func(key string) ([]byte, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		result, ok := m.entries[key]
		if !ok {
			return nil, cache.ErrNotFound
		}
		return result, nil
	}

	m.PutFunc = func(key string, result []byte) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.entries[key] = result
		return nil
	}

	m.ClearFunc = func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.entries = make(map[string][]byte)
		return nil
	}

	m.StatsFunc = func() cache.Stats {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return cache.Stats{Size: len(m.entries)}
	}

	return m
}

// Get returns the cached result for the key
func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.recordCall("Get")
	return m.GetFunc(key)
}

// Put stores a result under the key
func (m *MockCache) Put(ctx context.Context, key string, result []byte) error {
	m.recordCall("Put")
	return m.PutFunc(key, result)
}

// Clear drops every entry
func (m *MockCache) Clear(ctx context.Context) error {
	m.recordCall("Clear")
	return m.ClearFunc()
}

// Stats returns a snapshot of the mock's state
func (m *MockCache) Stats() cache.Stats {
	m.recordCall("Stats")
	return m.StatsFunc()
}

func (m *MockCache) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCounts[method]++
}
