package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never put raw query text or parameter values in traces
// or metrics. Only log metadata such as query hashes, lengths, outcome
// kinds, and validation results. Traces are often:
//   - Persisted for extended periods
//   - Accessible to wider audiences than production systems
//   - Replicated across monitoring infrastructure
//   - Subject to compliance requirements (GDPR, PCI-DSS, etc.)
const (
	// Gate attributes - SAFE to use for metadata only
	AttrIdentity     = "sqlguard.identity"      // Caller identity (non-secret)
	AttrQueryHash    = "sqlguard.query.hash"    // Short content hash of the query
	AttrQueryLength  = "sqlguard.query.length"  // Query length in bytes
	AttrQueryKind    = "sqlguard.query.kind"    // How a query was answered (cached/database/error)
	AttrDecision     = "sqlguard.decision"      // Whether the request was allowed (boolean)
	AttrRejectReason = "sqlguard.reject_reason" // Error code class behind a rejection

	// RESERVED - DO NOT USE: never set this attribute to actual query text.
	// Use AttrQueryHash and AttrQueryLength instead.
	AttrQueryText = "sqlguard.query.text" // RESERVED - use query.hash / query.length instead

	// Security attributes
	AttrEventType     = "security.event.type"
	AttrEventSeverity = "security.event.severity"
	AttrClientIP      = "security.client_ip"

	// Cache attributes
	AttrCacheOperation = "cache.operation"
	AttrCacheResult    = "cache.result"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
// This is a convenience wrapper that safely handles nil spans
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
// This is a convenience wrapper that safely handles nil spans
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddQueryAttributes adds query metadata attributes to a span (nil-safe)
func AddQueryAttributes(span trace.Span, queryHash string, queryLength int) {
	if queryHash != "" {
		SetSpanAttributes(span,
			attribute.String(AttrQueryHash, queryHash),
			attribute.Int(AttrQueryLength, queryLength),
		)
	}
}

// AddGateAttributes adds gate decision attributes to a span (nil-safe)
func AddGateAttributes(span trace.Span, identity string, allowed bool, reason string) {
	if identity != "" {
		SetSpanAttributes(span, attribute.String(AttrIdentity, identity))
	}
	SetSpanAttributes(span, attribute.Bool(AttrDecision, allowed))
	if reason != "" {
		SetSpanAttributes(span, attribute.String(AttrRejectReason, reason))
	}
}

// AddCacheAttributes adds cache operation attributes to a span (nil-safe)
func AddCacheAttributes(span trace.Span, operation, result string) {
	SetSpanAttributes(span,
		attribute.String(AttrCacheOperation, operation),
		attribute.String(AttrCacheResult, result),
	)
}

// AddSecurityAttributes adds security-related attributes to a span (nil-safe)
//
// PRIVACY NOTE: Client IP addresses may be considered Personally Identifiable Information (PII).
// Before calling this function, check if IP logging is enabled using instrumentation.ShouldLogClientIPs().
// Example:
//
//	if inst.ShouldLogClientIPs() {
//	    AddSecurityAttributes(span, clientIP)
//	}
func AddSecurityAttributes(span trace.Span, clientIP string) {
	if clientIP != "" {
		SetSpanAttributes(span, attribute.String(AttrClientIP, clientIP))
	}
}
