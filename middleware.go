package sqlguard

import (
	"context"
	"time"

	"github.com/giantswarm/mcp-sqlguard/executor"
	"github.com/giantswarm/mcp-sqlguard/perf"
)

// Context keys for request attribution
type contextKey string

const (
	identityKey contextKey = "identity"
	sourceIPKey contextKey = "source_ip"
)

// ContextWithIdentity attaches the caller identity used for rate limiting,
// blocklisting, and audit attribution to the context.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the caller identity from the context
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityKey).(string)
	return identity, ok
}

// ContextWithSourceIP attaches the caller's source IP to the context. The
// IP only appears in audit events and spans; it never affects admission.
func ContextWithSourceIP(ctx context.Context, sourceIP string) context.Context {
	return context.WithValue(ctx, sourceIPKey, sourceIP)
}

// SourceIPFromContext retrieves the caller's source IP from the context
func SourceIPFromContext(ctx context.Context) (string, bool) {
	sourceIP, ok := ctx.Value(sourceIPKey).(string)
	return sourceIP, ok
}

// Wrap composes the gate with cache-aware execution and returns an
// executor with an identical contract. Every call is validated first;
// admitted queries run through the analyzer's cache and the round trip is
// recorded against the gate's performance baseline. Both exec and
// analyzer must be non-nil.
//
// Caller identity and source IP are read from the context via
// ContextWithIdentity and ContextWithSourceIP. Requests whose context
// carries no identity share a single anonymous rate-limit bucket.
//
// Denials surface as *Error with the denial's reason code and security
// events. Executor errors pass through unchanged; the gate records them
// but never rewrites them.
func (g *Guard) Wrap(exec executor.Executor, analyzer *perf.Analyzer) executor.Executor {
	return executor.Func(func(ctx context.Context, query string, params map[string]any) ([]byte, error) {
		req := Request{Query: query, Params: params}
		if identity, ok := IdentityFromContext(ctx); ok {
			req.Identity = identity
		}
		if sourceIP, ok := SourceIPFromContext(ctx); ok {
			req.SourceIP = sourceIP
		}

		decision := g.ValidateRequest(ctx, req)
		if !decision.Allowed {
			return nil, rejectionError(decision)
		}

		start := time.Now()
		result, kind, err := analyzer.CachedExecute(ctx, exec, query, params)
		g.RecordQueryPerformance(ctx, time.Since(start), string(kind))
		if err != nil {
			g.RecordExecutorFailure(ctx, req.Identity, err)
			return nil, err
		}
		return result, nil
	})
}

// rejectionError converts a denial decision into the matching gate error.
func rejectionError(decision Decision) *Error {
	switch decision.Reason {
	case ErrorCodeRateLimited:
		return ErrRateLimited("request rate limit exceeded", decision.Events)
	case ErrorCodeBlocked:
		return ErrBlocked("identity is blocked", decision.Events)
	default:
		return ErrValidationRejected("query rejected by security validation", decision.Events)
	}
}
