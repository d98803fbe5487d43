// Package server provides the query service sitting in front of a guarded
// database executor.
//
// The Service type ties the policy gate, the cache-aware analyzer, and a
// database executor into one request path. Every query, whether raw SQL or
// built from a structured table query, is validated, rate limited, served
// from the result cache when possible, and measured.
//
// The Service type delegates to specialized packages:
//   - Admission decisions and auditing (sqlguard package)
//   - Cached execution and performance metrics (perf package)
//   - Database access (executor package)
//
// Key Features:
//   - Raw SQL execution with a safe-mode statement check ahead of the gate
//   - Structured table queries where caller values are bound as named
//     parameters and never concatenated into SQL text
//   - Schema introspection via information_schema
//   - Table registry with per-table defaults, query suggestions, and
//     insights
//   - Optional global QPS throttle ahead of per-identity rate limits
//
// Example usage:
//
//	guard, err := sqlguard.New(&sqlguard.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	analyzer, err := perf.NewAnalyzer(memory.New(), nil, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exec, err := postgres.New(ctx, postgres.Config{DSN: dsn})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := server.New(guard, analyzer, exec, nil, &server.Config{
//	    ThrottleQPS: 50,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := svc.ExecuteSQL(ctx, server.ReadRequest{
//	    Identity: "analytics-service",
//	    Query:    "SELECT id, name FROM users LIMIT 10",
//	})
package server
