package sqlguard

import "github.com/giantswarm/mcp-sqlguard/security"

// Request is one query admission request presented to the gate
type Request struct {
	// Query is the SQL text to vet. The gate inspects it but never
	// executes it; execution stays with the caller's executor.
	Query string `json:"query"`

	// Identity is the requesting principal (API key, user ID, client ID).
	// Rate limiting and blocking are keyed on it.
	Identity string `json:"identity"`

	// SourceIP is the reported network origin of the request (optional).
	// When set it is attached to every finding so the audit trail can
	// classify the origin.
	SourceIP string `json:"source_ip,omitempty"`

	// Params are the bind parameters the executor would receive.
	// The gate does not inspect them; they are carried for executors
	// and the result cache.
	Params map[string]any `json:"params,omitempty"`
}

// Decision is the gate's verdict on a request
type Decision struct {
	// Allowed reports whether the request may be executed
	Allowed bool `json:"allowed"`

	// Reason is the rejection class when Allowed is false: one of the
	// ErrorCode* constants. Empty when the request is allowed.
	Reason string `json:"reason,omitempty"`

	// Events are all findings produced while vetting the request,
	// advisory ones included. An allowed request may still carry
	// low- and medium-severity findings.
	Events []security.Event `json:"events,omitempty"`
}

// Overall status values reported by StatusReport.OverallStatus.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// StatusReport is a point-in-time snapshot of the gate's operational state
type StatusReport struct {
	// OverallStatus is StatusHealthy, or StatusDegraded once the rolling
	// average query time reaches the degradation threshold
	OverallStatus string `json:"overall_status"`

	// BlockedIdentities is the number of currently blocklisted identities
	BlockedIdentities int `json:"blocked_identities"`

	// Performance is the rolling query performance window snapshot
	Performance security.PerformanceStats `json:"performance"`

	// RateLimit is the admission limiter snapshot, configuration included
	RateLimit security.RateLimiterStats `json:"rate_limit"`
}
