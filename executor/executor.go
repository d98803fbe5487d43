package executor

import "context"

// Executor runs a query against the downstream database and returns the
// serialized result rows.
//
// Implementations return results as JSON-encoded bytes so the caching and
// metrics layers can size and store them without knowing row shapes.
// Execution errors are passed through to callers unchanged; the gate
// records them but never rewrites them.
type Executor interface {
	// Execute runs the query with parameters bound from params. A nil
	// params map is treated as empty.
	Execute(ctx context.Context, query string, params map[string]any) ([]byte, error)
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, query string, params map[string]any) ([]byte, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, query string, params map[string]any) ([]byte, error) {
	return f(ctx, query, params)
}
