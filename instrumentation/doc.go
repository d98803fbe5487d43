// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the mcp-sqlguard library.
//
// This package enables observability across all library layers through:
// - Metrics: Counters, histograms, and gauges for monitoring gate decisions and query traffic
// - Traces: Distributed tracing for request flows across components
//
// # Quick Start
//
// Instrumentation is disabled by default and uses no-op providers:
//
//	import "github.com/giantswarm/mcp-sqlguard/instrumentation"
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-query-gate",
//		ServiceVersion: "1.0.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// # Prometheus Metrics
//
// Export metrics to Prometheus by injecting an sdk/metric provider backed
// by the otel Prometheus exporter:
//
//	import (
//		"github.com/prometheus/client_golang/prometheus/promhttp"
//		otelprom "go.opentelemetry.io/otel/exporters/prometheus"
//		sdkmetric "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, _ := otelprom.New()
//	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:   "my-query-gate",
//		Enabled:       true,
//		MeterProvider: provider,
//	})
//
//	// Expose /metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// Gate:
//   - sqlguard.requests.validated{outcome} - Requests by gate decision
//   - sqlguard.query.executions{kind} - Queries served by outcome kind
//   - sqlguard.query.duration{kind} - Query duration in milliseconds
//
// Security:
//   - sqlguard.security.events{event_type, severity} - Security events raised
//   - sqlguard.injection.detected - SQL injection patterns matched
//   - sqlguard.rate_limit.exceeded - Rate limit violations
//   - sqlguard.identity.blocked - Identities placed on the blocklist
//   - sqlguard.identities.blocked.current - Currently blocked identities
//   - sqlguard.audit.events.total{event_type} - Audit records written
//
// Cache:
//   - sqlguard.cache.operation.total{operation, result} - Cache operations
//   - sqlguard.cache.operation.duration{operation} - Operation duration in milliseconds
//   - sqlguard.cache.entries.count - Current cache size
//
// # Performance
//
// When instrumentation is not configured or disabled:
//   - Zero overhead (uses no-op providers)
//   - No allocations or latency impact
//
// # Thread Safety
//
// All instrumentation operations are thread-safe and can be called concurrently from multiple goroutines.
//
// # Security Considerations
//
// IMPORTANT: This package is designed to collect observability data, not query contents.
//
// When instrumenting the gate, you MUST:
//   - NEVER put raw query text or parameter values in traces or metrics
//   - ONLY log metadata (query hashes, lengths, outcome kinds, validation results)
//
// Data collected in traces and metrics may be:
//   - Persisted for extended periods in observability backends
//   - Accessible to operations teams and potentially wider audiences
//   - Subject to compliance requirements (GDPR, PCI-DSS, SOC 2, etc.)
//
// Privacy considerations:
//   - Client IP addresses may be considered PII in some jurisdictions
//   - Set LogClientIPs to false to omit them from traces
//   - Configure appropriate retention policies and access controls
package instrumentation
