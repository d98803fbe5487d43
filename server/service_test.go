package server

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	sqlguard "github.com/giantswarm/mcp-sqlguard"
	"github.com/giantswarm/mcp-sqlguard/cache/memory"
	executormock "github.com/giantswarm/mcp-sqlguard/executor/mock"
	"github.com/giantswarm/mcp-sqlguard/internal/testutil"
	"github.com/giantswarm/mcp-sqlguard/perf"
)

func guardForTest(t *testing.T) *sqlguard.Guard {
	t.Helper()
	guard, err := sqlguard.New(&sqlguard.Config{
		Logger: testutil.DiscardLogger(),
		Audit:  sqlguard.AuditConfig{Writer: io.Discard},
	})
	if err != nil {
		t.Fatalf("sqlguard.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := guard.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return guard
}

func analyzerForTest(t *testing.T) *perf.Analyzer {
	t.Helper()
	analyzer, err := perf.NewAnalyzer(memory.New(), nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("perf.NewAnalyzer() error = %v", err)
	}
	return analyzer
}

func newTestService(t *testing.T, config *Config, registry *TableRegistry) (*Service, *executormock.MockExecutor) {
	t.Helper()
	exec := executormock.NewMockExecutor()
	svc, err := New(guardForTest(t), analyzerForTest(t), exec, registry, config, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, exec
}

func gateError(t *testing.T, err error) *sqlguard.Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var gerr *sqlguard.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a *sqlguard.Error", err)
	}
	return gerr
}

func TestNewRequiresDependencies(t *testing.T) {
	guard := guardForTest(t)
	analyzer := analyzerForTest(t)
	exec := executormock.NewMockExecutor()
	logger := testutil.DiscardLogger()

	if _, err := New(nil, analyzer, exec, nil, nil, logger); err == nil || !strings.Contains(err.Error(), "guard is required") {
		t.Errorf("nil guard: error = %v", err)
	}
	if _, err := New(guard, nil, exec, nil, nil, logger); err == nil || !strings.Contains(err.Error(), "analyzer is required") {
		t.Errorf("nil analyzer: error = %v", err)
	}
	if _, err := New(guard, analyzer, nil, nil, nil, logger); err == nil || !strings.Contains(err.Error(), "executor is required") {
		t.Errorf("nil executor: error = %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "negative throttle qps", config: &Config{ThrottleQPS: -1}},
		{name: "negative throttle burst", config: &Config{ThrottleBurst: -1}},
		{name: "negative default limit", config: &Config{DefaultLimit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(guardForTest(t), analyzerForTest(t), executormock.NewMockExecutor(), nil, tt.config, testutil.DiscardLogger())
			gerr := gateError(t, err)
			if gerr.Code != sqlguard.ErrorCodeConfiguration {
				t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeConfiguration)
			}
		})
	}
}

func TestExecuteSQLReturnsRows(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	query := "SELECT id, name FROM users"
	exec.SetResult(query, []byte(`[{"id":1,"name":"ada"},{"id":2,"name":"grace"}]`))

	res, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "analyst", Query: query})
	if err != nil {
		t.Fatalf("ExecuteSQL failed: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Count)
	}
	if !strings.Contains(string(res.Data), `"ada"`) {
		t.Errorf("Data = %s, missing rows", res.Data)
	}
	if res.Table != "" {
		t.Errorf("Table = %q, want empty for raw SQL", res.Table)
	}
}

func TestExecuteSQLCachesRepeatedQueries(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	req := ReadRequest{Identity: "analyst", Query: "SELECT id FROM orders"}
	for i := 0; i < 3; i++ {
		if _, err := svc.ExecuteSQL(context.Background(), req); err != nil {
			t.Fatalf("ExecuteSQL call %d failed: %v", i, err)
		}
	}

	if got := exec.ExecuteCount(); got != 1 {
		t.Errorf("ExecuteCount = %d, want 1 (repeats must come from the cache)", got)
	}
}

func TestExecuteSQLSafeModeRejectsDangerousStatements(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantKeyword string
	}{
		{name: "drop", query: "DROP TABLE users", wantKeyword: "DROP"},
		{name: "lowercase delete", query: "delete from sessions", wantKeyword: "DELETE"},
		{name: "truncate", query: "TRUNCATE logs", wantKeyword: "TRUNCATE"},
		{name: "alter", query: "ALTER TABLE users ADD COLUMN note text", wantKeyword: "ALTER"},
		{name: "create", query: "CREATE INDEX idx_users_email ON users(email)", wantKeyword: "CREATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, exec := newTestService(t, nil, nil)

			_, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "analyst", Query: tt.query})
			gerr := gateError(t, err)
			if gerr.Code != sqlguard.ErrorCodeValidationRejected {
				t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
			}
			if !strings.Contains(gerr.Description, tt.wantKeyword) {
				t.Errorf("Description = %q, missing keyword %q", gerr.Description, tt.wantKeyword)
			}
			if len(gerr.Events) != 0 {
				t.Errorf("safe mode rejections carry no findings, got %d", len(gerr.Events))
			}
			if exec.ExecuteCount() != 0 {
				t.Error("executor must not run for a rejected statement")
			}
		})
	}
}

func TestExecuteSQLSafeModeAllowsSelect(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	// created_at contains CREATE; the SELECT prefix must win.
	query := "SELECT * FROM users WHERE created_at > '2024-01-01'"
	if _, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "analyst", Query: query}); err != nil {
		t.Fatalf("ExecuteSQL failed: %v", err)
	}
	if exec.ExecuteCount() != 1 {
		t.Errorf("ExecuteCount = %d, want 1", exec.ExecuteCount())
	}
}

func TestExecuteSQLAllowUnsafeStillGated(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	_, err := svc.ExecuteSQL(context.Background(), ReadRequest{
		Identity:    "cleanup-batch",
		Query:       "DROP TABLE archived",
		AllowUnsafe: true,
	})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if len(gerr.Events) == 0 {
		t.Error("gate rejections must carry the security findings")
	}
	if exec.ExecuteCount() != 0 {
		t.Error("executor must not run for a rejected statement")
	}

	// The critical finding blocks the identity for later requests too.
	_, err = svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "cleanup-batch", Query: "SELECT 1"})
	gerr = gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeBlocked {
		t.Errorf("Code = %q, want %q after a critical finding", gerr.Code, sqlguard.ErrorCodeBlocked)
	}
}

func TestExecuteSQLDisableSafeModeDefersToGate(t *testing.T) {
	svc, _ := newTestService(t, &Config{DisableSafeMode: true}, nil)

	_, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "admin", Query: "DROP TABLE archived"})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if len(gerr.Events) == 0 {
		t.Error("with safe mode off the rejection must come from the gate, with findings")
	}
}

func TestExecuteSQLRejectsInjection(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	_, err := svc.ExecuteSQL(context.Background(), ReadRequest{
		Identity: "analyst",
		SourceIP: "203.0.113.7",
		Query:    "SELECT * FROM users WHERE name = '' OR '1'='1'",
	})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if len(gerr.Events) == 0 {
		t.Fatal("expected security findings on an injection attempt")
	}
	if exec.ExecuteCount() != 0 {
		t.Error("executor must not run for a rejected statement")
	}
}

func TestExecuteSQLExecutorFailure(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	dbErr := errors.New("connection refused")
	exec.ExecuteFunc = func(ctx context.Context, query string, params map[string]any) ([]byte, error) {
		return nil, dbErr
	}

	_, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "analyst", Query: "SELECT 1"})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeExecutorFailure {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeExecutorFailure)
	}
	if !errors.Is(err, dbErr) {
		t.Error("the database error must stay reachable through errors.Is")
	}
}

func TestQueryTableBuildsBoundedSQL(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)
	if svc.Registry() == nil {
		t.Fatal("Registry() returned nil")
	}

	res, err := svc.QueryTable(context.Background(), TableQuery{
		Identity: "analyst",
		Table:    "users",
		Columns:  []string{"id", "name"},
		Filters:  []Filter{{Column: "price", Operator: "gte", Value: 100}},
		OrderBy:  "-created_at",
	})
	if err != nil {
		t.Fatalf("QueryTable failed: %v", err)
	}
	if res.Table != "users" {
		t.Errorf("Table = %q, want users", res.Table)
	}

	want := "SELECT id, name FROM users WHERE price >= :f0 ORDER BY created_at DESC LIMIT 100"
	if got := exec.Queries[len(exec.Queries)-1]; got != want {
		t.Errorf("executed query = %q, want %q", got, want)
	}
}

func TestQueryTableUsesTableLimit(t *testing.T) {
	registry := NewTableRegistry()
	if err := registry.Register(usersTableConfig()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc, exec := newTestService(t, nil, registry)

	if _, err := svc.QueryTable(context.Background(), TableQuery{Identity: "analyst", Table: "users"}); err != nil {
		t.Fatalf("QueryTable failed: %v", err)
	}
	if got := exec.Queries[len(exec.Queries)-1]; got != "SELECT * FROM users LIMIT 25" {
		t.Errorf("executed query = %q, want the table limit applied", got)
	}

	if _, err := svc.QueryTable(context.Background(), TableQuery{Identity: "analyst", Table: "users", Limit: 3}); err != nil {
		t.Fatalf("QueryTable with explicit limit failed: %v", err)
	}
	if got := exec.Queries[len(exec.Queries)-1]; got != "SELECT * FROM users LIMIT 3" {
		t.Errorf("executed query = %q, explicit limits must win", got)
	}
}

func TestQueryTableRejectsUnregisteredTable(t *testing.T) {
	registry := NewTableRegistry()
	if err := registry.Register(usersTableConfig()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc, exec := newTestService(t, nil, registry)

	_, err := svc.QueryTable(context.Background(), TableQuery{Identity: "analyst", Table: "orders"})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if !strings.Contains(gerr.Description, "not configured") {
		t.Errorf("Description = %q", gerr.Description)
	}
	if exec.ExecuteCount() != 0 {
		t.Error("executor must not run for an unregistered table")
	}
}

func TestQueryTableRejectsUnknownColumn(t *testing.T) {
	registry := NewTableRegistry()
	if err := registry.Register(usersTableConfig()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc, _ := newTestService(t, nil, registry)

	_, err := svc.QueryTable(context.Background(), TableQuery{
		Identity: "analyst",
		Table:    "users",
		Columns:  []string{"password"},
	})
	gerr := gateError(t, err)
	if !strings.Contains(gerr.Description, "not part of") {
		t.Errorf("Description = %q", gerr.Description)
	}
}

func TestQueryTableRejectsBadIdentifier(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	_, err := svc.QueryTable(context.Background(), TableQuery{
		Identity: "analyst",
		Table:    "users; DROP TABLE users",
	})
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if !strings.Contains(gerr.Description, "invalid table name") {
		t.Errorf("Description = %q", gerr.Description)
	}
	if exec.ExecuteCount() != 0 {
		t.Error("executor must not run for an invalid identifier")
	}
}

func TestListTables(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)
	exec.SetResult(listTablesQuery, []byte(`[{"table_name":"users","table_type":"BASE TABLE"},{"table_name":"orders","table_type":"BASE TABLE"}]`))

	res, err := svc.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Count)
	}
	if exec.Queries[0] != listTablesQuery {
		t.Errorf("executed query = %q, want the schema listing", exec.Queries[0])
	}
}

func TestDescribeTable(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	var gotParams map[string]any
	exec.ExecuteFunc = func(ctx context.Context, query string, params map[string]any) ([]byte, error) {
		gotParams = params
		return []byte(`[{"column_name":"id","data_type":"uuid"}]`), nil
	}

	res, err := svc.DescribeTable(context.Background(), "users")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if res.Count != 1 || res.Table != "users" {
		t.Errorf("got Count=%d Table=%q, want 1/users", res.Count, res.Table)
	}
	if exec.Queries[0] != describeTableQuery {
		t.Errorf("executed query = %q, want the column listing", exec.Queries[0])
	}
	if gotParams["table_name"] != "users" {
		t.Errorf("params = %v, want table_name bound", gotParams)
	}
}

func TestDescribeTableRejectsBadIdentifier(t *testing.T) {
	svc, exec := newTestService(t, nil, nil)

	_, err := svc.DescribeTable(context.Background(), "users; --")
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeValidationRejected {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeValidationRejected)
	}
	if exec.ExecuteCount() != 0 {
		t.Error("executor must not run for an invalid identifier")
	}
}

func TestServiceThrottle(t *testing.T) {
	svc, _ := newTestService(t, &Config{ThrottleQPS: 1, ThrottleBurst: 1}, nil)

	if _, err := svc.ExecuteSQL(context.Background(), ReadRequest{Identity: "analyst", Query: "SELECT 1"}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	_, err := svc.ListTables(context.Background())
	gerr := gateError(t, err)
	if gerr.Code != sqlguard.ErrorCodeRateLimited {
		t.Errorf("Code = %q, want %q", gerr.Code, sqlguard.ErrorCodeRateLimited)
	}
	if !strings.Contains(gerr.Description, "service query rate") {
		t.Errorf("Description = %q, want the service throttle, not the identity limiter", gerr.Description)
	}
}
