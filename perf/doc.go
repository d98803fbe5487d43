// Package perf provides query performance tracking and cache-aware
// execution for mcp-sqlguard.
//
// # Metrics Recording
//
// Recorder keeps a bounded in-memory history of query metrics (hashed
// query, duration, result size, outcome kind) plus a separate capped list
// of slow-query records that retain a snippet of the query text:
//
//	recorder := perf.NewRecorder(logger)
//	recorder.Record(perf.Metric{
//		QueryHash: "a1b2c3d4e5f60718",
//		Duration:  120 * time.Millisecond,
//		Kind:      perf.KindDatabase,
//	})
//	analysis := recorder.AnalyzePatterns()
//
// AnalyzePatterns summarizes the last hour of metrics: totals, cache hit
// ratio, execution time spread, and a per-kind breakdown. Query text never
// enters the metric ring; only slow-query records keep a bounded snippet
// for operator inspection.
//
// # Cache-Aware Execution
//
// Analyzer couples a result cache with an executor. CachedExecute serves
// from the cache when possible, collapses concurrent identical misses into
// a single execution, and records exactly one metric per call:
//
//	analyzer, err := perf.NewAnalyzer(resultCache, recorder, logger)
//	if err != nil {
//		// handle error
//	}
//	rows, kind, err := analyzer.CachedExecute(ctx, exec, query, params)
//
// The returned kind reports whether the rows came from the cache or the
// database. Executor errors pass through CachedExecute unchanged and
// their results are never cached.
//
// # Monitoring
//
// Suggestions, HealthReport, and Dashboard turn the recorded history into
// operator-facing output: tuning advice, a 0-100 health score graded
// excellent/fair/poor, and a point-in-time snapshot combining both with
// the most recent slow queries.
package perf
