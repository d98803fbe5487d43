package server

import (
	"fmt"
	"log/slog"
)

// defaultMaxResults caps result sets when neither the request nor the
// table configuration specifies a limit.
const defaultMaxResults = 100

// Config holds query service configuration
type Config struct {
	// DisableSafeMode lets statements other than SELECT reach the gate.
	// WARNING: Safe mode is the first line of defense against destructive
	// statements (DROP, DELETE, TRUNCATE, ALTER, CREATE). Only disable it
	// for trusted administrative callers; the gate's query validation
	// still applies either way.
	// Default: false (safe mode on)
	DisableSafeMode bool

	// ThrottleQPS is the global ceiling on queries per second across all
	// identities, applied before per-identity rate limiting. Zero disables
	// the global throttle.
	// Default: 0 (disabled)
	ThrottleQPS float64

	// ThrottleBurst is the burst size of the global throttle. Ignored when
	// ThrottleQPS is zero.
	// Default: ThrottleQPS rounded up, at least 1
	ThrottleBurst int

	// DefaultLimit caps QueryTable results when the request has no limit
	// and the table configuration sets none.
	// Default: 100
	DefaultLimit int
}

// applyConfigDefaults fills zero values and warns about insecure settings.
func applyConfigDefaults(config *Config, logger *slog.Logger) *Config {
	if config.DefaultLimit == 0 {
		config.DefaultLimit = defaultMaxResults
	}

	if config.DisableSafeMode {
		logger.Warn("⚠️  SECURITY WARNING: Safe mode is DISABLED",
			"risk", "Destructive statements can reach the database",
			"recommendation", "Leave DisableSafeMode=false unless every caller is trusted")
	}

	return config
}

// validateConfig rejects settings that cannot mean anything.
func validateConfig(config *Config) error {
	if config.ThrottleQPS < 0 {
		return fmt.Errorf("throttle QPS must not be negative, got %v", config.ThrottleQPS)
	}
	if config.ThrottleBurst < 0 {
		return fmt.Errorf("throttle burst must not be negative, got %d", config.ThrottleBurst)
	}
	if config.DefaultLimit < 0 {
		return fmt.Errorf("default limit must not be negative, got %d", config.DefaultLimit)
	}
	return nil
}
