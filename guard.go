package sqlguard

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-sqlguard/instrumentation"
	"github.com/giantswarm/mcp-sqlguard/internal/util"
	"github.com/giantswarm/mcp-sqlguard/security"
)

const (
	// performanceDegradationThreshold is the rolling average query time above
	// which RecordQueryPerformance emits a degradation event
	performanceDegradationThreshold = 5 * time.Second

	// degradedStatusThreshold is the rolling average query time at or above
	// which SecurityStatus reports the gate as degraded
	degradedStatusThreshold = 2 * time.Second
)

// Guard is the policy gate in front of a database executor. It decides per
// request whether the query may run, keeps the per-identity rate limiter
// and blocklist, and maintains the rolling performance window behind
// SecurityStatus.
//
// A Guard is constructed once and shared; all methods are safe for
// concurrent use. Call Close when the guard is no longer needed to stop
// the rate limiter's background cleanup and flush the audit trail.
type Guard struct {
	validator   *security.Validator
	rateLimiter *security.RateLimiter
	blocklist   *security.Blocklist
	auditor     *security.Auditor
	perfMonitor *security.PerformanceMonitor

	instrumentation *instrumentation.Instrumentation
	logger          *slog.Logger
}

// New creates a guard from the configuration. A nil config uses defaults
// for everything. Configuration problems fail construction with a
// configuration error; nothing is validated lazily per request.
func New(cfg *Config) (*Guard, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrConfiguration(err.Error())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guard{
		validator: security.NewValidator(security.ValidatorConfig{
			MaxQueryLength: cfg.Validation.MaxQueryLength,
			MaxResultLimit: cfg.Validation.MaxResultLimit,
		}),
		rateLimiter: security.NewRateLimiterWithConfig(security.RateLimiterConfig{
			MaxRequests:   cfg.RateLimit.MaxRequests,
			Window:        cfg.RateLimit.Window,
			MaxIdentities: cfg.RateLimit.MaxIdentities,
			Logger:        logger,
		}),
		blocklist:       security.NewBlocklist(logger),
		perfMonitor:     security.NewPerformanceMonitor(),
		instrumentation: cfg.Instrumentation,
		logger:          logger,
	}

	if cfg.Audit.Disabled {
		logger.Warn("Security audit trail is disabled; findings will leave no durable record")
	} else {
		g.auditor = security.NewAuditor(security.AuditorConfig{
			FilePath:   cfg.Audit.FilePath,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
			Writer:     cfg.Audit.Writer,
			Logger:     logger,
		})
	}

	if g.instrumentation != nil {
		if err := g.instrumentation.RegisterBlockedIdentitiesCallback(func() int64 {
			return int64(g.blocklist.Len())
		}); err != nil {
			logger.Warn("Registering blocked identities gauge failed", "error", err)
		}
	}

	return g, nil
}

// Close stops the rate limiter's background cleanup goroutine and closes
// the audit sink. The guard must not be used afterwards.
func (g *Guard) Close() error {
	g.rateLimiter.Stop()
	return g.auditor.Close()
}

// ValidateRequest vets one request and returns the admission decision.
//
// Checks run in a fixed order and the first gate that fails decides:
// rate limit, then blocklist, then query validation. Every finding is
// written to the audit trail, including advisory findings on requests
// that end up allowed. An identity whose query produces a critical
// finding is blocklisted for all later requests; the decision for the
// triggering request reflects only that request's findings.
func (g *Guard) ValidateRequest(ctx context.Context, req Request) Decision {
	ctx, span := g.startSpan(ctx, "gate.validate_request")
	defer span.End()

	instrumentation.AddQueryAttributes(span, util.Fingerprint(req.Query), len(req.Query))
	if g.instrumentation != nil && g.instrumentation.ShouldLogClientIPs() {
		instrumentation.AddSecurityAttributes(span, req.SourceIP)
	}

	decision := g.admit(ctx, req)

	instrumentation.AddGateAttributes(span, req.Identity, decision.Allowed, decision.Reason)
	return decision
}

// admit runs the admission checks in order.
func (g *Guard) admit(ctx context.Context, req Request) Decision {
	now := time.Now()

	if !g.rateLimiter.Allow(req.Identity) {
		event := security.Event{
			Timestamp: now,
			Kind:      security.EventRateLimitExceeded,
			Severity:  security.SeverityHigh,
			Identity:  req.Identity,
			SourceIP:  req.SourceIP,
			Details: map[string]any{
				"max_requests": g.rateLimiter.Stats().MaxRequests,
			},
		}
		g.recordEvent(ctx, event)
		g.recordValidation(ctx, "rate_limited")
		g.logger.Warn("Request rate limited", "identity", req.Identity)
		return Decision{Reason: ErrorCodeRateLimited, Events: []security.Event{event}}
	}

	if g.blocklist.Contains(req.Identity) {
		event := security.Event{
			Timestamp: now,
			Kind:      security.EventUnauthorizedAccess,
			Severity:  security.SeverityCritical,
			Identity:  req.Identity,
			Query:     req.Query,
			SourceIP:  req.SourceIP,
			Details: map[string]any{
				"reason": "identity blocked",
			},
		}
		g.recordEvent(ctx, event)
		g.recordValidation(ctx, "blocked")
		g.logger.Warn("Request from blocked identity", "identity", req.Identity)
		return Decision{Reason: ErrorCodeBlocked, Events: []security.Event{event}}
	}

	safe, events := g.validator.Validate(req.Query, req.Identity)
	for i := range events {
		if events[i].SourceIP == "" {
			events[i].SourceIP = req.SourceIP
		}
	}
	for _, event := range events {
		g.recordEvent(ctx, event)
	}

	if !safe {
		// Critical findings block the identity from here on; this
		// request is rejected on its own findings either way.
		g.blocklist.Block(req.Identity)
		g.recordIdentityBlocked(ctx)
		g.recordValidation(ctx, "rejected")
		g.logger.Warn("Request rejected by query validation",
			"identity", req.Identity,
			"critical_events", security.CountCritical(events))
		return Decision{Reason: ErrorCodeValidationRejected, Events: events}
	}

	g.recordValidation(ctx, "allowed")
	return Decision{Allowed: true, Events: events}
}

// RecordQueryPerformance feeds one execution duration into the rolling
// performance window. kind tags how the query was served ("cached",
// "database", "error"). When the rolling average crosses the degradation
// threshold a medium-severity event is emitted and audited.
func (g *Guard) RecordQueryPerformance(ctx context.Context, duration time.Duration, kind string) {
	g.perfMonitor.RecordQueryTime(duration, kind)
	if g.instrumentation != nil {
		g.instrumentation.Metrics().RecordQueryExecution(ctx, kind, float64(duration.Milliseconds()))
	}

	stats := g.perfMonitor.Stats()
	if stats.AvgQueryTime <= performanceDegradationThreshold {
		return
	}

	event := security.Event{
		Timestamp: time.Now(),
		Kind:      security.EventPerformanceDegradation,
		Severity:  security.SeverityMedium,
		Identity:  "system",
		Details: map[string]any{
			"avg_query_time": stats.AvgQueryTime.Seconds(),
			"max_query_time": stats.MaxQueryTime.Seconds(),
			"min_query_time": stats.MinQueryTime.Seconds(),
			"total_samples":  stats.TotalSamples,
			"recent_samples": stats.RecentSamples,
		},
	}
	g.recordEvent(ctx, event)
	g.logger.Warn("Query performance degraded",
		"avg_query_time", stats.AvgQueryTime,
		"total_samples", stats.TotalSamples)
}

// RecordExecutorFailure counts a downstream execution failure and audits
// it as a connection failure finding. The failure itself stays with the
// caller: the gate records executor errors, it never replaces them.
func (g *Guard) RecordExecutorFailure(ctx context.Context, identity string, err error) {
	if err == nil {
		return
	}

	g.perfMonitor.RecordError(string(security.EventConnectionFailure))

	event := security.Event{
		Timestamp: time.Now(),
		Kind:      security.EventConnectionFailure,
		Severity:  security.SeverityMedium,
		Identity:  identity,
		Details: map[string]any{
			"error": err.Error(),
		},
	}
	g.recordEvent(ctx, event)
}

// SecurityStatus reports the gate's operational state: the blocklist size
// plus performance and rate limiter snapshots. The gate is degraded once
// the rolling average query time reaches the degradation threshold.
func (g *Guard) SecurityStatus() StatusReport {
	stats := g.perfMonitor.Stats()

	status := StatusHealthy
	if stats.State == security.PerfStateOK && stats.AvgQueryTime >= degradedStatusThreshold {
		status = StatusDegraded
	}

	return StatusReport{
		OverallStatus:     status,
		BlockedIdentities: g.blocklist.Len(),
		Performance:       stats,
		RateLimit:         g.rateLimiter.Stats(),
	}
}

// UnblockIdentity lifts an identity's block. Blocking has no timeout or
// decay; this is the only way back in. The administrative action is
// audited whether or not the identity was actually blocked; the return
// value reports whether a block was lifted.
func (g *Guard) UnblockIdentity(ctx context.Context, identity string) bool {
	removed := g.blocklist.Unblock(identity)

	event := security.Event{
		Timestamp: time.Now(),
		Kind:      security.EventUnauthorizedAccess,
		Severity:  security.SeverityLow,
		Identity:  "admin",
		Details: map[string]any{
			"action": "unblock_identity",
			"target": identity,
		},
	}
	g.recordEvent(ctx, event)

	if removed {
		g.logger.Info("Identity unblocked", "identity", identity)
	}
	return removed
}

// startSpan opens a gate span, or returns a no-op span when
// instrumentation is not configured.
func (g *Guard) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if g.instrumentation == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return g.instrumentation.Tracer("gate").Start(ctx, name)
}

// recordEvent writes one finding to the audit trail and counts it in the
// metrics backend.
func (g *Guard) recordEvent(ctx context.Context, event security.Event) {
	g.auditor.Record(ctx, event)

	if g.instrumentation == nil {
		return
	}
	m := g.instrumentation.Metrics()
	m.RecordSecurityEvent(ctx, string(event.Kind), string(event.Severity))
	if g.auditor != nil {
		m.RecordAuditEvent(ctx, string(event.Kind))
	}
	switch event.Kind {
	case security.EventSQLInjection:
		m.RecordInjectionDetected(ctx)
	case security.EventRateLimitExceeded:
		m.RecordRateLimitExceeded(ctx)
	}
}

// recordValidation counts one admission decision by outcome.
func (g *Guard) recordValidation(ctx context.Context, outcome string) {
	if g.instrumentation == nil {
		return
	}
	g.instrumentation.Metrics().RecordRequestValidation(ctx, outcome)
}

// recordIdentityBlocked counts one identity entering the blocklist.
func (g *Guard) recordIdentityBlocked(ctx context.Context) {
	if g.instrumentation == nil {
		return
	}
	g.instrumentation.Metrics().RecordIdentityBlocked(ctx)
}
