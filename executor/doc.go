// Package executor defines the downstream query execution contract.
//
// The gate never talks to a database itself. Callers supply an Executor
// and the performance layer drives it on cache misses; everything the gate
// caches, measures, or audits is derived from what the Executor returns.
//
// Implementations are provided in subpackages:
//   - executor/postgres: PostgreSQL adapter using sqlx named queries
//   - executor/mock: Configurable executor for unit testing
//
// Implementations are responsible for:
//   - Binding named parameters from the params map
//   - Serializing result rows to JSON bytes
//   - Returning execution errors unchanged (the gate records them but
//     never rewrites them)
//
// Example usage:
//
//	db := executor.Func(func(ctx context.Context, query string, params map[string]any) ([]byte, error) {
//	    // run the query however the host application likes
//	    return json.Marshal(rows)
//	})
//
//	gated := guard.Wrap(db, analyzer)
//	rows, err := gated.Execute(ctx, "SELECT * FROM users", nil)
package executor
