package util

import (
	"crypto/sha256"
	"fmt"
)

// FingerprintLength is the number of hex characters kept from the full
// SHA-256 digest. 16 characters (64 bits) are enough to correlate records
// while keeping log lines short.
const FingerprintLength = 16

// Fingerprint returns a short, deterministic content hash of a query for
// audit records and metrics. Raw query text never reaches the security log;
// the same scheme is used by the metrics recorder so operators can correlate
// audit entries with performance samples.
//
// Returns an empty string for empty input.
func Fingerprint(query string) string {
	if query == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%x", hash)[:FingerprintLength]
}
