package security

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/mcp-sqlguard/internal/util"
)

const (
	// DefaultMaxQueryLength is the query length above which a query is
	// flagged as suspicious
	DefaultMaxQueryLength = 10000

	// DefaultMaxResultLimit is the largest LIMIT value a query may request
	// before it is flagged as suspicious
	DefaultMaxResultLimit = 10000

	// querySnippetLength bounds the query preview attached to oversized-query
	// events. The full text stays with the caller; events and logs only need
	// enough to identify the statement.
	querySnippetLength = 100
)

// keywordRule pairs a dangerous keyword with the severity of a match.
type keywordRule struct {
	keyword  string
	severity Severity
}

// dangerousKeywords is scanned as uppercase substrings, so a keyword inside
// a longer word also matches. Severity reflects blast radius: statements
// that destroy data or execute commands are critical, writes are high or
// medium, schema introspection is low.
var dangerousKeywords = []keywordRule{
	{"DROP", SeverityCritical},
	{"DELETE", SeverityHigh},
	{"TRUNCATE", SeverityCritical},
	{"ALTER", SeverityHigh},
	{"CREATE", SeverityMedium},
	{"INSERT", SeverityMedium},
	{"UPDATE", SeverityMedium},
	{"EXEC", SeverityCritical},
	{"EXECUTE", SeverityCritical},
	{"UNION", SeverityMedium},
	{"INFORMATION_SCHEMA", SeverityLow},
	{"PG_", SeverityLow},
}

// injectionPatterns are compiled once at package load. Any match is a
// critical finding, independent of the keyword scan.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)'.*OR.*'.*'`),      // tautology, e.g. ' OR '1'='1
	regexp.MustCompile(`(?i)'.*UNION.*SELECT`), // UNION-based injection
	regexp.MustCompile(`(?i)';.*--`),           // stacked query with comment
	regexp.MustCompile(`(?i)'.*AND.*'.*'`),     // tautology, e.g. ' AND '1'='1
	regexp.MustCompile(`\\x[0-9a-fA-F]+`),      // hex-encoded payload
	regexp.MustCompile(`(?i)CHAR\s*\(`),        // CHAR() obfuscation
	regexp.MustCompile(`(?i)ASCII\s*\(`),       // ASCII() obfuscation
	regexp.MustCompile(`/\*.*\*/`),             // block comment stripping
	regexp.MustCompile(`--.*`),                 // line comment stripping
	regexp.MustCompile(`(?i)xp_cmdshell`),      // system command execution
	regexp.MustCompile(`(?i)sp_executesql`),    // dynamic SQL execution
}

// limitPattern extracts the numeric argument of a LIMIT clause.
// Matched against the uppercased query.
var limitPattern = regexp.MustCompile(`LIMIT\s+(\d+)`)

// Validator classifies query text into security events using fixed rule
// tables. Validation is a pure function of the query: it keeps no state and
// performs no I/O, so a single Validator is safe for concurrent use.
type Validator struct {
	maxQueryLength int
	maxResultLimit int
}

// ValidatorConfig holds query validation limits
type ValidatorConfig struct {
	// MaxQueryLength is the length in bytes above which a query is flagged.
	// Default: 10000
	MaxQueryLength int

	// MaxResultLimit is the largest LIMIT value allowed without a flag.
	// Default: 10000
	MaxResultLimit int
}

// NewValidator creates a validator, applying defaults for zero limits.
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = DefaultMaxQueryLength
	}
	if cfg.MaxResultLimit <= 0 {
		cfg.MaxResultLimit = DefaultMaxResultLimit
	}
	return &Validator{
		maxQueryLength: cfg.MaxQueryLength,
		maxResultLimit: cfg.MaxResultLimit,
	}
}

// Validate inspects a query and returns whether it is safe to execute along
// with every finding the rule tables produced. A query is safe iff no
// critical-severity event was emitted; lower-severity findings are advisory.
// A single call may yield zero, one, or many events.
func (v *Validator) Validate(query, identity string) (bool, []Event) {
	var events []Event
	queryUpper := strings.ToUpper(query)
	now := time.Now()

	if len(query) > v.maxQueryLength {
		events = append(events, Event{
			Timestamp: now,
			Kind:      EventSuspiciousQuery,
			Severity:  SeverityMedium,
			Identity:  identity,
			Query:     util.Snippet(query, querySnippetLength),
			Details: map[string]any{
				"reason": "query exceeds maximum length",
				"length": len(query),
			},
		})
	}

	// Reading information_schema via a plain SELECT is legitimate
	// introspection; the keyword only fires inside other statements.
	isSelect := strings.HasPrefix(strings.TrimSpace(queryUpper), "SELECT")
	for _, rule := range dangerousKeywords {
		if !strings.Contains(queryUpper, rule.keyword) {
			continue
		}
		if rule.keyword == "INFORMATION_SCHEMA" && isSelect {
			continue
		}
		events = append(events, Event{
			Timestamp: now,
			Kind:      EventSuspiciousQuery,
			Severity:  rule.severity,
			Identity:  identity,
			Query:     query,
			Details: map[string]any{
				"dangerous_keyword": rule.keyword,
			},
		})
	}

	for _, re := range injectionPatterns {
		if !re.MatchString(query) {
			continue
		}
		events = append(events, Event{
			Timestamp: now,
			Kind:      EventSQLInjection,
			Severity:  SeverityCritical,
			Identity:  identity,
			Query:     query,
			Details: map[string]any{
				"injection_pattern": re.String(),
			},
		})
	}

	if m := limitPattern.FindStringSubmatch(queryUpper); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > v.maxResultLimit {
			// Atoi only fails on overflow here, which certainly exceeds the cap.
			var limit any = n
			if err != nil {
				limit = m[1]
			}
			events = append(events, Event{
				Timestamp: now,
				Kind:      EventSuspiciousQuery,
				Severity:  SeverityMedium,
				Identity:  identity,
				Query:     query,
				Details: map[string]any{
					"excessive_limit": limit,
				},
			})
		}
	}

	return CountCritical(events) == 0, events
}
