package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the gate library
type Metrics struct {
	// Gate Metrics
	RequestsValidated metric.Int64Counter
	QueryExecutions   metric.Int64Counter
	QueryDuration     metric.Float64Histogram

	// Security Metrics
	SecurityEvents    metric.Int64Counter
	InjectionDetected metric.Int64Counter
	RateLimitExceeded metric.Int64Counter
	IdentitiesBlocked metric.Int64Counter
	BlockedIdentities metric.Int64ObservableGauge
	AuditEventsTotal  metric.Int64Counter

	// Cache Metrics
	CacheOperationTotal    metric.Int64Counter
	CacheOperationDuration metric.Float64Histogram
	CacheSize              metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	// Gate Metrics
	var err error
	m.RequestsValidated, err = inst.gateMeter.Int64Counter(
		"sqlguard.requests.validated",
		metric.WithDescription("Total number of requests presented to the gate"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests.validated counter: %w", err)
	}

	m.QueryExecutions, err = inst.gateMeter.Int64Counter(
		"sqlguard.query.executions",
		metric.WithDescription("Number of queries served, by outcome kind"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query.executions counter: %w", err)
	}

	m.QueryDuration, err = inst.gateMeter.Float64Histogram(
		"sqlguard.query.duration",
		metric.WithDescription("Query execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query.duration histogram: %w", err)
	}

	// Security Metrics
	m.SecurityEvents, err = inst.securityMeter.Int64Counter(
		"sqlguard.security.events",
		metric.WithDescription("Number of security events raised during validation"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security.events counter: %w", err)
	}

	m.InjectionDetected, err = inst.securityMeter.Int64Counter(
		"sqlguard.injection.detected",
		metric.WithDescription("Number of SQL injection patterns detected"),
		metric.WithUnit("{detection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create injection.detected counter: %w", err)
	}

	m.RateLimitExceeded, err = inst.securityMeter.Int64Counter(
		"sqlguard.rate_limit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.IdentitiesBlocked, err = inst.securityMeter.Int64Counter(
		"sqlguard.identity.blocked",
		metric.WithDescription("Number of identities placed on the blocklist"),
		metric.WithUnit("{identity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity.blocked counter: %w", err)
	}

	m.BlockedIdentities, err = inst.securityMeter.Int64ObservableGauge(
		"sqlguard.identities.blocked.current",
		metric.WithDescription("Number of identities currently blocked"),
		metric.WithUnit("{identity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identities.blocked.current gauge: %w", err)
	}

	m.AuditEventsTotal, err = inst.securityMeter.Int64Counter(
		"sqlguard.audit.events.total",
		metric.WithDescription("Total number of audit events recorded"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	// Cache Metrics
	m.CacheOperationTotal, err = inst.cacheMeter.Int64Counter(
		"sqlguard.cache.operation.total",
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.operation.total counter: %w", err)
	}

	m.CacheOperationDuration, err = inst.cacheMeter.Float64Histogram(
		"sqlguard.cache.operation.duration",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.operation.duration histogram: %w", err)
	}

	m.CacheSize, err = inst.cacheMeter.Int64ObservableGauge(
		"sqlguard.cache.entries.count",
		metric.WithDescription("Number of entries currently cached"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.entries.count gauge: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordRequestValidation records a gate decision by outcome
// ("allowed", "rate_limited", "blocked", "rejected")
func (m *Metrics) RecordRequestValidation(ctx context.Context, outcome string) {
	m.RequestsValidated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordQueryExecution records one served query by outcome kind
// ("cached", "database", "error")
func (m *Metrics) RecordQueryExecution(ctx context.Context, kind string, durationMs float64) {
	m.QueryExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
	m.QueryDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordSecurityEvent records a security event raised during validation
func (m *Metrics) RecordSecurityEvent(ctx context.Context, eventType, severity string) {
	m.SecurityEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("severity", severity),
	))
}

// RecordInjectionDetected records a SQL injection pattern match
func (m *Metrics) RecordInjectionDetected(ctx context.Context) {
	m.InjectionDetected.Add(ctx, 1)
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context) {
	m.RateLimitExceeded.Add(ctx, 1)
}

// RecordIdentityBlocked records an identity being placed on the blocklist
func (m *Metrics) RecordIdentityBlocked(ctx context.Context) {
	m.IdentitiesBlocked.Add(ctx, 1)
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordCacheOperation records a cache operation
// ("get", "put", "clear") with its result ("success", "miss")
func (m *Metrics) RecordCacheOperation(ctx context.Context, operation, result string, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("result", result),
	}

	m.CacheOperationTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.CacheOperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
