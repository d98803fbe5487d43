// Package util provides common utility functions used across the mcp-sqlguard library.
// These utilities handle string truncation, query fingerprinting, and other shared
// operations that don't fit into domain-specific packages.
package util

// SafeTruncate safely truncates a string to maxLen characters without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the first maxLen characters. This prevents index out of bounds errors when
// logging query text, where only a prefix should be shown.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("SELECT * FROM users WHERE id = 1", 8) // Returns: "SELECT *"
//	SafeTruncate("short", 10)                           // Returns: "short"
//	SafeTruncate("test", -1)                            // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// Snippet returns a short preview of a query for inclusion in security
// events and slow-query records. Text longer than maxLen is truncated and
// suffixed with an ellipsis marker so readers can tell it is incomplete.
//
// Example:
//
//	Snippet("SELECT 1", 100) // Returns: "SELECT 1"
//	Snippet(longQuery, 100)  // Returns: first 100 chars + "..."
func Snippet(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
