// Package memory provides an in-memory implementation of the result cache.
//
// This package implements the cache.ResultCache interface using a map with
// an LRU list under a single mutex. It is suitable for development,
// testing, and single-instance deployments; cached results do not survive
// a restart.
//
// Features:
//   - LRU eviction when the entry capacity is reached
//   - Per-entry TTL with lazy removal plus a periodic full sweep
//   - Atomic hit/miss/eviction/expiration counters behind Stats()
//   - Optional OpenTelemetry spans and metrics via SetInstrumentation
//
// Example usage:
//
//	resultCache := memory.NewWithConfig(memory.Config{
//	    MaxSize: 500,
//	    TTL:     5 * time.Minute,
//	})
//
//	analyzer, _ := perf.NewAnalyzer(resultCache, nil, logger)
package memory
