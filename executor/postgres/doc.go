// Package postgres provides an Executor backed by a PostgreSQL database.
//
// Queries run through sqlx named-query binding, so statements use :name
// placeholders matched against the params map. Result rows are scanned
// into maps and serialized to JSON bytes, the shape every layer above the
// executor works with.
//
// Features:
//   - Named parameter binding via sqlx (no string interpolation)
//   - []byte columns normalized to strings before serialization
//   - Connection pool limits with sensible defaults
//   - Connectivity verified with a ping at construction
//
// Example usage:
//
//	db, err := postgres.New(ctx, postgres.Config{
//	    DSN: os.Getenv("DATABASE_URL"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	rows, err := db.Execute(ctx, "SELECT * FROM users WHERE id = :id", map[string]any{"id": 7})
package postgres
