// Package mock provides a mock Executor for testing.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/giantswarm/mcp-sqlguard/executor"
)

// MockExecutor is a mock implementation of Executor for testing.
// Override ExecuteFunc to inject behavior; the default returns the canned
// result registered with SetResult, or an empty JSON array.
type MockExecutor struct {
	mu      sync.Mutex
	results map[string][]byte

	ExecuteFunc func(ctx context.Context, query string, params map[string]any) ([]byte, error)

	CallCounts map[string]int

	// Queries records every query passed to Execute, in order.
	Queries []string
}

// Compile-time interface check
var _ executor.Executor = (*MockExecutor)(nil)

// NewMockExecutor creates a new mock executor
func NewMockExecutor() *MockExecutor {
	m := &MockExecutor{
		results:    make(map[string][]byte),
		CallCounts: make(map[string]int),
	}

	// Set default implementation
	m.ExecuteFunc = func(ctx context.Context, query string, params map[string]any) ([]byte, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if result, ok := m.results[query]; ok {
			return result, nil
		}
		return json.Marshal([]map[string]any{})
	}

	return m
}

// SetResult registers the canned result returned for a query
func (m *MockExecutor) SetResult(query string, result []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = result
}

// Execute runs the configured ExecuteFunc and records the call
func (m *MockExecutor) Execute(ctx context.Context, query string, params map[string]any) ([]byte, error) {
	m.mu.Lock()
	m.CallCounts["Execute"]++
	m.Queries = append(m.Queries, query)
	fn := m.ExecuteFunc
	m.mu.Unlock()

	return fn(ctx, query, params)
}

// ExecuteCount returns how many times Execute was called
func (m *MockExecutor) ExecuteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCounts["Execute"]
}
