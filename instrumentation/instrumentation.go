package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceVersion is the default service version used when none is provided
	DefaultServiceVersion = "unknown"
)

// Config holds instrumentation configuration
type Config struct {
	// ServiceName is the name of the service (e.g., "mcp-sqlguard", "my-query-gate")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled controls whether instrumentation is active
	// When false, uses no-op providers (zero overhead)
	// Default: false
	Enabled bool

	// LogClientIPs controls whether client IP addresses are included in traces
	// When false, client IP attributes will be omitted from observability data
	// This can help with GDPR and privacy compliance in strict jurisdictions
	//
	// Privacy Note: Client IP addresses may be considered Personally Identifiable
	// Information (PII) under GDPR and other privacy regulations. Disabling IP
	// logging may be required in certain jurisdictions or for certain compliance
	// frameworks (e.g., GDPR in EU, CCPA in California).
	LogClientIPs bool

	// MeterProvider supplies the metrics backend (e.g., a Prometheus-backed
	// sdk/metric provider). Only used when Enabled; nil falls back to a
	// no-op provider.
	MeterProvider metric.MeterProvider

	// TracerProvider supplies the tracing backend. Only used when Enabled;
	// nil falls back to a no-op provider.
	TracerProvider trace.TracerProvider

	// Resource allows custom resource attributes
	// If nil, default resource is created with service name and version
	Resource *resource.Resource
}

// Instrumentation provides OpenTelemetry instrumentation components
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	// Providers - these are used to create meters and tracers on demand
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	// Scope meters used by the metric instruments
	gateMeter     metric.Meter
	securityMeter metric.Meter
	cacheMeter    metric.Meter

	// Metrics holder provides pre-configured metric instruments
	metrics *Metrics

	// Shutdown functions (must be registered during New() only, not thread-safe after initialization)
	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates a new instrumentation instance
func New(config Config) (*Instrumentation, error) {
	// Apply defaults
	if config.ServiceName == "" {
		config.ServiceName = "mcp-sqlguard"
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}

	// Create or use provided resource
	var res *resource.Resource
	var err error
	if config.Resource != nil {
		res = config.Resource
	} else {
		res, err = resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
	}

	inst := &Instrumentation{
		config:   config,
		resource: res,
	}

	// Wire providers. Injected providers are owned by the caller and are
	// not shut down here.
	if config.Enabled {
		inst.meterProvider = config.MeterProvider
		inst.tracerProvider = config.TracerProvider
	}
	if inst.meterProvider == nil {
		inst.meterProvider = noop.NewMeterProvider()
	}
	if inst.tracerProvider == nil {
		inst.tracerProvider = tracenoop.NewTracerProvider()
	}

	inst.gateMeter = inst.Meter("gate")
	inst.securityMeter = inst.Meter("security")
	inst.cacheMeter = inst.Meter("cache")

	// Initialize metrics (creates instruments on the scope meters)
	inst.metrics, err = newMetrics(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return inst, nil
}

// Shutdown gracefully shuts down all instrumentation components
// This should be called when the application is terminating
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var shutdownErr error

	i.shutdownOnce.Do(func() {
		// Call all registered shutdown functions
		for _, fn := range i.shutdownFuncs {
			if err := fn(ctx); err != nil {
				// Capture first error, but continue shutting down other components
				if shutdownErr == nil {
					shutdownErr = err
				}
			}
		}
	})

	return shutdownErr
}

// Meter returns a named meter for the given scope
// Scopes are typically layer names like "gate", "security", "cache", "server"
// The full name will be "github.com/giantswarm/mcp-sqlguard/{scope}"
func (i *Instrumentation) Meter(scope string) metric.Meter {
	return i.meterProvider.Meter("github.com/giantswarm/mcp-sqlguard/" + scope)
}

// Tracer returns a named tracer for the given scope
// Scopes are typically layer names like "gate", "security", "cache", "server"
// The full name will be "github.com/giantswarm/mcp-sqlguard/{scope}"
func (i *Instrumentation) Tracer(scope string) trace.Tracer {
	return i.tracerProvider.Tracer("github.com/giantswarm/mcp-sqlguard/" + scope)
}

// Metrics returns the metrics holder for recording metric values
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// TracerProvider returns the underlying tracer provider
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	return i.tracerProvider
}

// MeterProvider returns the underlying meter provider
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

// ShouldLogClientIPs returns whether client IP addresses should be logged
// This respects the LogClientIPs configuration for privacy compliance
func (i *Instrumentation) ShouldLogClientIPs() bool {
	return i.config.LogClientIPs
}

// SizeCallback is a function that returns the current size of a component
type SizeCallback func() int64

// RegisterCacheSizeCallback registers a callback for the cache size gauge
// Cache implementations should call this after instrumentation is set
//
// Example:
//
//	func (c *Cache) SetInstrumentation(inst *instrumentation.Instrumentation) {
//	    c.instrumentation = inst
//	    inst.RegisterCacheSizeCallback(func() int64 { return c.sizeAtomic.Load() })
//	}
func (i *Instrumentation) RegisterCacheSizeCallback(entriesCount SizeCallback) error {
	if i.meterProvider == nil {
		return fmt.Errorf("meter provider not initialized")
	}

	_, err := i.cacheMeter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if entriesCount != nil {
				observer.ObserveInt64(i.metrics.CacheSize, entriesCount())
			}
			return nil
		},
		i.metrics.CacheSize,
	)

	return err
}

// RegisterBlockedIdentitiesCallback registers a callback for the blocked
// identities gauge. The guard calls this when instrumentation is attached.
func (i *Instrumentation) RegisterBlockedIdentitiesCallback(blockedCount SizeCallback) error {
	if i.meterProvider == nil {
		return fmt.Errorf("meter provider not initialized")
	}

	_, err := i.securityMeter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if blockedCount != nil {
				observer.ObserveInt64(i.metrics.BlockedIdentities, blockedCount())
			}
			return nil
		},
		i.metrics.BlockedIdentities,
	)

	return err
}
