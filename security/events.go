package security

import "time"

// EventKind identifies the category of a security event.
// These constants ensure consistency across the codebase and prevent typos
// when emitting and filtering security-relevant events.
type EventKind string

const (
	// Query threat events

	// EventSQLInjection is emitted when a query matches a known injection pattern
	EventSQLInjection EventKind = "sql_injection"

	// EventSuspiciousQuery is emitted for dangerous keywords, oversized queries,
	// and excessive LIMIT values
	EventSuspiciousQuery EventKind = "suspicious_query"

	// Admission events

	// EventUnauthorizedAccess is emitted when a blocked identity issues a request,
	// and at LOW severity when an administrator lifts a block
	EventUnauthorizedAccess EventKind = "unauthorized_access"

	// EventRateLimitExceeded is emitted when an identity exceeds its request window
	EventRateLimitExceeded EventKind = "rate_limit_exceeded"

	// Operational events

	// EventPerformanceDegradation is emitted when the rolling average query time
	// crosses the degradation threshold
	EventPerformanceDegradation EventKind = "performance_degradation"

	// EventConnectionFailure is emitted when the downstream executor is unreachable
	EventConnectionFailure EventKind = "connection_failure"
)

// Severity classifies how dangerous a detected condition is.
// The ordering is total: Low < Medium < High < Critical.
type Severity string

const (
	// SeverityLow marks informational findings such as schema introspection
	SeverityLow Severity = "low"

	// SeverityMedium marks findings that warrant review but not rejection
	SeverityMedium Severity = "medium"

	// SeverityHigh marks findings that indicate probable abuse
	SeverityHigh Severity = "high"

	// SeverityCritical marks findings that make a request unsafe to execute
	SeverityCritical Severity = "critical"
)

// severityRank maps severities to their position in the total order.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is as severe as min or more so.
// Unknown severities rank below SeverityLow.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// Event represents a single security finding. Events are immutable once
// created; after emission they are owned by the audit sink and must not be
// modified by the producer.
type Event struct {
	// Timestamp is when the finding was made
	Timestamp time.Time `json:"timestamp"`

	// Kind is the event category
	Kind EventKind `json:"kind"`

	// Severity classifies the finding; Critical findings reject the request
	Severity Severity `json:"severity"`

	// Identity is the requesting identity the finding applies to.
	// System-generated events use the identity "system"; administrative
	// actions use "admin".
	Identity string `json:"identity"`

	// Query is the query text the finding refers to. Oversized queries are
	// truncated to a snippet before they are attached. The audit sink never
	// persists this field directly; it records a content hash instead.
	Query string `json:"query"`

	// SourceIP is the reported network origin of the request, when known
	SourceIP string `json:"source_ip,omitempty"`

	// Details carries rule-specific context such as the matched keyword,
	// the matched injection pattern, or monitor statistics
	Details map[string]any `json:"details,omitempty"`
}

// CountCritical returns the number of critical-severity events in the slice.
func CountCritical(events []Event) int {
	n := 0
	for _, e := range events {
		if e.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
