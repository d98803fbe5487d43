package security

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/giantswarm/mcp-sqlguard/internal/util"
)

const (
	// DefaultAuditFilePath is where the audit trail is written when no
	// path or writer is configured
	DefaultAuditFilePath = "sqlguard-audit.log"

	// Rotation defaults for the audit file
	defaultAuditMaxSizeMB  = 50
	defaultAuditMaxBackups = 5
	defaultAuditMaxAgeDays = 30
)

// AuditorConfig holds audit trail settings
type AuditorConfig struct {
	// FilePath is the audit log file. The file rotates at MaxSizeMB, keeping
	// MaxBackups old files for at most MaxAgeDays.
	// Default: sqlguard-audit.log in the working directory
	FilePath string

	// MaxSizeMB is the rotation threshold in megabytes.
	// Default: 50
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	// Default: 5
	MaxBackups int

	// MaxAgeDays is how long rotated files are retained.
	// Default: 30
	MaxAgeDays int

	// Compress gzips rotated files
	Compress bool

	// Writer overrides the rotating file sink. Intended for tests; when set,
	// the rotation settings above are ignored.
	Writer io.Writer

	// Logger is the component logger. Critical and high severity records are
	// mirrored to it so they surface in operational logs, not only in the
	// trail. Defaults to slog.Default().
	Logger *slog.Logger
}

// Auditor appends security events to a structured JSON audit trail.
//
// Each record carries a generated ID, the event classification, the
// identity, and a content hash of the query. Raw SQL never reaches the
// trail: queries may embed literals with user data, and the hash is enough
// to correlate records with performance metrics.
//
// Writes are best-effort. A full disk or failing sink never blocks or
// fails the request being audited.
type Auditor struct {
	trail  *slog.Logger
	logger *slog.Logger
	closer io.Closer
}

// NewAuditor creates an auditor writing to the configured file, or to
// cfg.Writer when set.
func NewAuditor(cfg AuditorConfig) *Auditor {
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultAuditFilePath
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultAuditMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = defaultAuditMaxBackups
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = defaultAuditMaxAgeDays
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w = lj
		closer = lj
	}

	trail := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &Auditor{
		trail:  trail,
		logger: cfg.Logger,
		closer: closer,
	}
}

// Record appends one event to the audit trail. Safe to call on a nil
// auditor, which makes auditing optional at call sites.
func (a *Auditor) Record(ctx context.Context, event Event) {
	if a == nil {
		return
	}

	attrs := []any{
		"id", uuid.NewString(),
		"type", string(event.Kind),
		"severity", string(event.Severity),
		"identity", event.Identity,
		"query_hash", util.Fingerprint(event.Query),
	}
	if event.SourceIP != "" {
		attrs = append(attrs,
			"source_ip", event.SourceIP,
			"ip_class", util.ClassifySourceIP(event.SourceIP).String())
	}
	if len(event.Details) > 0 {
		attrs = append(attrs, "details", event.Details)
	}

	a.trail.Log(ctx, severityLevel(event.Severity), "security event", attrs...)

	if event.Severity == SeverityCritical || event.Severity == SeverityHigh {
		a.logger.Error("Security event recorded",
			"type", string(event.Kind),
			"severity", string(event.Severity),
			"identity", event.Identity,
			"query_hash", util.Fingerprint(event.Query))
	}
}

// RecordAll appends every event in order.
func (a *Auditor) RecordAll(ctx context.Context, events []Event) {
	if a == nil {
		return
	}
	for _, event := range events {
		a.Record(ctx, event)
	}
}

// Close closes the underlying sink when the auditor owns it. Auditors
// created with an override Writer have nothing to close.
func (a *Auditor) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// severityLevel maps event severity onto the slog level of the trail record.
func severityLevel(s Severity) slog.Level {
	switch s {
	case SeverityCritical, SeverityHigh:
		return slog.LevelError
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
