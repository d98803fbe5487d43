// Package util provides common utility functions used across the mcp-sqlguard library.
//
// This package contains helper functions for string truncation, query
// fingerprinting, and source IP classification that don't fit into
// domain-specific packages. These utilities are used internally by multiple
// packages to avoid code duplication and maintain consistent behavior across
// the codebase.
//
// Key utilities:
//   - SafeTruncate: Safely truncates strings for logging
//   - Snippet: Produces ellipsis-terminated query previews for events
//   - Fingerprint: Short SHA-256 content hash shared by audit and metrics
//   - ClassifySourceIP: Classifies request source IPs (public, private, loopback, etc.)
package util
