// Package cache provides the result cache used to short-circuit repeated
// queries.
//
// The cache package defines the ResultCache interface consumed by the
// performance layer, the Stats snapshot it reports, and the Key function
// that derives cache keys from a query and its bound parameters.
//
// Implementations are provided in subpackages:
//   - cache/memory: In-memory LRU cache with per-entry TTL
//   - cache/mock: Mock cache for unit testing
package cache
