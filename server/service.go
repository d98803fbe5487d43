package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sqlguard "github.com/giantswarm/mcp-sqlguard"
	"github.com/giantswarm/mcp-sqlguard/executor"
	"github.com/giantswarm/mcp-sqlguard/perf"
)

// unsafeKeywords are the statements safe mode refuses outside of a SELECT.
// Matching is by uppercase substring, exactly like the gate's own keyword
// scan, so the check is conservative.
var unsafeKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE"}

const listTablesQuery = `SELECT table_name, table_type FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`

const describeTableQuery = `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length FROM information_schema.columns WHERE table_name = :table_name AND table_schema = 'public' ORDER BY ordinal_position`

// ReadRequest is one raw SQL request.
type ReadRequest struct {
	// Identity is the caller identity for rate limiting and auditing
	Identity string `json:"identity,omitempty"`

	// SourceIP is the caller's source IP for audit attribution
	SourceIP string `json:"source_ip,omitempty"`

	// Query is the SQL to execute. Named parameters use :name syntax.
	Query string `json:"query"`

	// Params are bound to the query's named parameters
	Params map[string]any `json:"params,omitempty"`

	// AllowUnsafe skips the safe-mode statement check for this request.
	// WARNING: Only set this for trusted administrative callers. The
	// gate's query validation still applies.
	// Default: false (safe mode on)
	AllowUnsafe bool `json:"allow_unsafe,omitempty"`
}

// Result is the outcome of a successful query.
type Result struct {
	// Data is the JSON array of result rows as returned by the executor
	Data json.RawMessage `json:"data"`

	// Count is the number of rows in Data
	Count int `json:"count"`

	// Table names the queried table for table queries, empty otherwise
	Table string `json:"table,omitempty"`
}

// Service executes queries through the full protection stack: global
// throttle, safe-mode statement check, gate validation, result cache, and
// performance recording. All methods are safe for concurrent use.
type Service struct {
	gated    executor.Executor
	registry *TableRegistry
	throttle *throttle
	logger   *slog.Logger
	config   *Config
}

// New creates a query service. The guard, analyzer, and executor are
// required; a nil registry starts empty and a nil config uses defaults.
func New(
	guard *sqlguard.Guard,
	analyzer *perf.Analyzer,
	exec executor.Executor,
	registry *TableRegistry,
	config *Config,
	logger *slog.Logger,
) (*Service, error) {
	if guard == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if registry == nil {
		registry = NewTableRegistry()
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := validateConfig(config); err != nil {
		return nil, sqlguard.ErrConfiguration(err.Error())
	}
	config = applyConfigDefaults(config, logger)

	return &Service{
		gated:    guard.Wrap(exec, analyzer),
		registry: registry,
		throttle: newThrottle(config.ThrottleQPS, config.ThrottleBurst),
		logger:   logger,
		config:   config,
	}, nil
}

// Registry exposes the table registry for configuration and insights.
func (s *Service) Registry() *TableRegistry {
	return s.registry
}

// ExecuteSQL runs one raw SQL query through the protection stack.
//
// Safe mode rejects statements containing DROP, DELETE, TRUNCATE, ALTER,
// or CREATE unless the query is a SELECT; the check runs before the gate
// so destructive statements never count against the caller's findings.
// Gate denials and executor failures both surface as *sqlguard.Error.
func (s *Service) ExecuteSQL(ctx context.Context, req ReadRequest) (*Result, error) {
	if !s.throttle.allow() {
		return nil, sqlguard.ErrRateLimited("service query rate exceeded", nil)
	}

	if !s.config.DisableSafeMode && !req.AllowUnsafe {
		if keyword, found := unsafeKeyword(req.Query); found {
			s.logger.Warn("Dangerous operation rejected",
				"keyword", keyword,
				"identity", req.Identity)
			return nil, sqlguard.ErrValidationRejected(
				fmt.Sprintf("dangerous operation detected: %s", keyword), nil)
		}
	}

	ctx = attributedContext(ctx, req.Identity, req.SourceIP)
	data, err := s.gated.Execute(ctx, req.Query, req.Params)
	if err != nil {
		return nil, classifyError(err)
	}
	return &Result{Data: data, Count: countRows(data)}, nil
}

// QueryTable builds and runs a structured query against one table.
//
// The registry validates the table and its columns when populated. A zero
// limit is replaced by the table's configured maximum or the service
// default, so table queries are always bounded.
func (s *Service) QueryTable(ctx context.Context, req TableQuery) (*Result, error) {
	if !s.throttle.allow() {
		return nil, sqlguard.ErrRateLimited("service query rate exceeded", nil)
	}

	if err := s.registry.ValidateQuery(req); err != nil {
		return nil, sqlguard.ErrValidationRejected(err.Error(), nil)
	}
	if req.Limit == 0 {
		req.Limit = s.defaultLimit(req.Table)
	}

	query, params, err := buildSelect(req)
	if err != nil {
		return nil, sqlguard.ErrValidationRejected(err.Error(), nil)
	}

	ctx = attributedContext(ctx, req.Identity, req.SourceIP)
	data, err := s.gated.Execute(ctx, query, params)
	if err != nil {
		return nil, classifyError(err)
	}
	return &Result{Data: data, Count: countRows(data), Table: req.Table}, nil
}

// ListTables returns the tables in the public schema. Caller attribution
// is read from the context when present.
func (s *Service) ListTables(ctx context.Context) (*Result, error) {
	if !s.throttle.allow() {
		return nil, sqlguard.ErrRateLimited("service query rate exceeded", nil)
	}

	data, err := s.gated.Execute(ctx, listTablesQuery, nil)
	if err != nil {
		return nil, classifyError(err)
	}
	return &Result{Data: data, Count: countRows(data)}, nil
}

// DescribeTable returns the column structure of one table. The table does
// not need to be registered; describing is how unknown tables get
// configured in the first place.
func (s *Service) DescribeTable(ctx context.Context, table string) (*Result, error) {
	if !s.throttle.allow() {
		return nil, sqlguard.ErrRateLimited("service query rate exceeded", nil)
	}
	if !identPattern.MatchString(table) {
		return nil, sqlguard.ErrValidationRejected(fmt.Sprintf("invalid table name %q", table), nil)
	}

	data, err := s.gated.Execute(ctx, describeTableQuery, map[string]any{"table_name": table})
	if err != nil {
		return nil, classifyError(err)
	}
	return &Result{Data: data, Count: countRows(data), Table: table}, nil
}

// defaultLimit picks the bound for a query that specifies none.
func (s *Service) defaultLimit(table string) int {
	if cfg, ok := s.registry.Lookup(table); ok && cfg.BusinessRules.MaxResults > 0 {
		return cfg.BusinessRules.MaxResults
	}
	return s.config.DefaultLimit
}

// unsafeKeyword reports the first dangerous keyword found in a non-SELECT
// statement.
func unsafeKeyword(query string) (string, bool) {
	upper := strings.ToUpper(query)
	if strings.HasPrefix(strings.TrimSpace(upper), "SELECT") {
		return "", false
	}
	for _, keyword := range unsafeKeywords {
		if strings.Contains(upper, keyword) {
			return keyword, true
		}
	}
	return "", false
}

// attributedContext carries request attribution into the gate.
func attributedContext(ctx context.Context, identity, sourceIP string) context.Context {
	if identity != "" {
		ctx = sqlguard.ContextWithIdentity(ctx, identity)
	}
	if sourceIP != "" {
		ctx = sqlguard.ContextWithSourceIP(ctx, sourceIP)
	}
	return ctx
}

// classifyError maps a failed execution into the gate error taxonomy.
// Gate denials already carry their reason; anything else is a downstream
// failure with the original error reachable through errors.Is and As.
func classifyError(err error) error {
	var gateErr *sqlguard.Error
	if errors.As(err, &gateErr) {
		return err
	}
	return sqlguard.ErrExecutorFailure(err)
}

// countRows counts the elements of a JSON row array. Anything that is not
// an array counts as zero rows.
func countRows(data []byte) int {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0
	}
	return len(rows)
}
