package sqlguard

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-sqlguard/instrumentation"
)

// Config holds the gate configuration
// Structured using composition for better organization and maintainability
type Config struct {
	// Validation holds query validation limits
	Validation ValidationConfig

	// RateLimit holds per-identity admission limits
	RateLimit RateLimitConfig

	// Audit holds security audit trail settings (enabled by default)
	Audit AuditConfig

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation enables OpenTelemetry metrics and traces (optional).
	// Nil disables metric recording; the gate works identically without it.
	Instrumentation *instrumentation.Instrumentation
}

// ValidationConfig holds query validation limits
type ValidationConfig struct {
	// MaxQueryLength is the query length in bytes above which a query is
	// flagged as suspicious.
	// Default: 10000
	MaxQueryLength int

	// MaxResultLimit is the largest LIMIT value a query may request before
	// it is flagged as suspicious.
	// Default: 10000
	MaxResultLimit int
}

// RateLimitConfig holds per-identity rate limiting configuration
type RateLimitConfig struct {
	// MaxRequests is the number of requests allowed per identity per window.
	// Default: 100
	MaxRequests int

	// Window is the sliding window length.
	// Default: 60s
	Window time.Duration

	// MaxIdentities caps how many distinct identities are tracked at once.
	// Beyond the cap the least recently seen identity is evicted.
	// Default: 10000
	MaxIdentities int
}

// AuditConfig holds audit trail settings (secure by default)
type AuditConfig struct {
	// Disabled turns the audit trail off entirely.
	// WARNING: Without the trail there is no durable record of injection
	// attempts, blocks, or administrative unblocks. Only disable in
	// development.
	Disabled bool

	// FilePath is the audit log file.
	// Default: sqlguard-audit.log in the working directory
	FilePath string

	// MaxSizeMB is the file rotation threshold in megabytes.
	// Default: 50
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	// Default: 5
	MaxBackups int

	// MaxAgeDays is how long rotated files are retained.
	// Default: 30
	MaxAgeDays int

	// Compress gzips rotated audit files
	Compress bool

	// Writer overrides the rotating file sink. Intended for tests; when
	// set, FilePath and the rotation settings are ignored.
	Writer io.Writer
}

// Validate checks the configuration for values that cannot be repaired by
// defaulting. Zero values mean "use the default"; negative limits are
// configuration errors rather than requests for unlimited behavior.
func (c *Config) Validate() error {
	if c.Validation.MaxQueryLength < 0 {
		return fmt.Errorf("validation max query length must not be negative, got %d", c.Validation.MaxQueryLength)
	}
	if c.Validation.MaxResultLimit < 0 {
		return fmt.Errorf("validation max result limit must not be negative, got %d", c.Validation.MaxResultLimit)
	}
	if c.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("rate limit max requests must not be negative, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate limit window must not be negative, got %v", c.RateLimit.Window)
	}
	if c.RateLimit.MaxIdentities < 0 {
		return fmt.Errorf("rate limit max identities must not be negative, got %d", c.RateLimit.MaxIdentities)
	}
	if c.Audit.MaxSizeMB < 0 {
		return fmt.Errorf("audit max size must not be negative, got %d", c.Audit.MaxSizeMB)
	}
	if c.Audit.MaxBackups < 0 {
		return fmt.Errorf("audit max backups must not be negative, got %d", c.Audit.MaxBackups)
	}
	if c.Audit.MaxAgeDays < 0 {
		return fmt.Errorf("audit max age must not be negative, got %d", c.Audit.MaxAgeDays)
	}
	return nil
}
