// Package security implements the detection side of query gating: query
// validation, per-identity rate limiting, the permanent blocklist,
// performance monitoring, and the audit trail.
//
// # Query Validation
//
// The Validator classifies raw SQL into security events using two fixed
// rule tables: dangerous keywords (DROP, TRUNCATE, EXEC, ...) matched as
// uppercase substrings, and SQL injection signatures matched as regular
// expressions. A query is safe when no critical event is produced;
// lower-severity events are advisory and do not block execution.
//
//	validator := security.NewValidator(security.ValidatorConfig{})
//	safe, events := validator.Validate(query, identity)
//	if !safe {
//	    // at least one critical finding
//	}
//
// Validation is deliberately conservative. Keywords match inside longer
// words, so "SELECT * FROM updates" is flagged at medium severity; callers
// decide how much weight advisory findings carry.
//
// # Rate Limiting
//
// The RateLimiter enforces a sliding-window limit per identity with
// automatic memory management through LRU eviction of tracked identities.
//
//	limiter := security.NewRateLimiter(logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(identity) {
//	    // over the limit for this window
//	}
//
// Denied requests are not recorded against the window, so an identity that
// keeps retrying recovers as soon as its earlier requests age out.
//
// # Blocklist
//
// The Blocklist is the permanent sanction: identities whose requests
// produce critical findings are added and stay blocked until an operator
// removes them with Unblock. Blocklist membership is checked before
// validation, so a blocked identity cannot probe the rule tables.
//
// # Performance Monitoring
//
// The PerformanceMonitor keeps a bounded window of query durations and
// error counts. Its Stats feed degradation events and the overall health
// verdict reported by the gate.
//
// # Audit Trail
//
// The Auditor appends every security event to a rotating JSON log. Records
// carry a content hash of the query instead of the raw SQL, so the trail
// can be retained and shipped without leaking query literals.
package security
