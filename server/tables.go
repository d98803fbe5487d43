package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BusinessRules captures per-table conventions the service interprets.
type BusinessRules struct {
	// MaxResults caps result sets for this table when a query specifies no
	// limit. Zero falls back to the service default.
	MaxResults int `json:"max_results,omitempty"`

	// SensitiveColumns lists columns operators should treat with care.
	// The registry surfaces them in insights; it never redacts data.
	SensitiveColumns []string `json:"sensitive_columns,omitempty"`

	// DateFilters lists timestamp columns worth filtering by recency.
	// SuggestQueries derives 7 and 30 day count queries from them.
	DateFilters []string `json:"date_filters,omitempty"`
}

// TableConfig describes one table the service knows about.
type TableConfig struct {
	// Name is the table name as it exists in the database
	Name string `json:"name"`

	// Alias is an alternative lookup name, e.g. a business term
	Alias string `json:"alias,omitempty"`

	// Description explains what the table holds
	Description string `json:"description,omitempty"`

	// PrimaryKey is the primary key column
	PrimaryKey string `json:"primary_key,omitempty"`

	// Columns maps column names to their data types. An empty map means
	// the structure is unknown and column validation is skipped.
	Columns map[string]string `json:"columns,omitempty"`

	// Indexes lists indexed columns, used for optimization tips
	Indexes []string `json:"indexes,omitempty"`

	// CommonQueries are ready-made queries surfaced by SuggestQueries
	CommonQueries []string `json:"common_queries,omitempty"`

	// BusinessRules are the conventions the service applies for this table
	BusinessRules BusinessRules `json:"business_rules,omitempty"`
}

// Insights summarizes a configured table for operators.
type Insights struct {
	Name             string        `json:"name"`
	Alias            string        `json:"alias,omitempty"`
	Description      string        `json:"description,omitempty"`
	ColumnCount      int           `json:"column_count"`
	IndexedColumns   []string      `json:"indexed_columns,omitempty"`
	SuggestedQueries []string      `json:"suggested_queries"`
	BusinessRules    BusinessRules `json:"business_rules"`
	OptimizationTips []string      `json:"optimization_tips"`
}

// TableRegistry holds the tables the service knows about, addressable by
// name or alias. Lookups are case-insensitive.
//
// An empty registry places no restriction on QueryTable; once at least one
// table is registered, only registered tables may be queried.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*TableConfig
}

// NewTableRegistry creates an empty registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{tables: make(map[string]*TableConfig)}
}

// Register adds or replaces a table configuration. The config becomes
// addressable under both its name and its alias.
func (r *TableRegistry) Register(cfg TableConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("table name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cfg
	r.tables[strings.ToLower(cfg.Name)] = &stored
	if cfg.Alias != "" {
		r.tables[strings.ToLower(cfg.Alias)] = &stored
	}
	return nil
}

// Lookup finds a table configuration by name or alias. The returned config
// is shared; treat it as read-only.
func (r *TableRegistry) Lookup(name string) (*TableConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.tables[strings.ToLower(name)]
	return cfg, ok
}

// Len reports how many tables are registered, counting aliases once.
func (r *TableRegistry) Len() int {
	return len(r.Names())
}

// Names returns the registered table names, sorted, without aliases.
func (r *TableRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.tables))
	names := make([]string, 0, len(r.tables))
	for _, cfg := range r.tables {
		if seen[cfg.Name] {
			continue
		}
		seen[cfg.Name] = true
		names = append(names, cfg.Name)
	}
	sort.Strings(names)
	return names
}

// SuggestQueries returns ready-made queries for a table. Unknown tables get
// a generic exploration set; configured tables get their common queries
// plus recency counts for every date filter column.
func (r *TableRegistry) SuggestQueries(table string) []string {
	cfg, ok := r.Lookup(table)
	if !ok {
		return []string{
			fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
			fmt.Sprintf("SELECT * FROM %s LIMIT 10", table),
			fmt.Sprintf("SELECT column_name, data_type FROM information_schema.columns WHERE table_name = '%s'", table),
		}
	}

	suggestions := append([]string(nil), cfg.CommonQueries...)
	for _, col := range cfg.BusinessRules.DateFilters {
		suggestions = append(suggestions,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s >= CURRENT_DATE - INTERVAL '7 days'", cfg.Name, col),
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s >= CURRENT_DATE - INTERVAL '30 days'", cfg.Name, col),
		)
	}
	return suggestions
}

// OptimizeQuery appends the table's default limit to a SELECT that has
// none. Queries against unknown tables are returned unchanged.
func (r *TableRegistry) OptimizeQuery(table, query string) string {
	cfg, ok := r.Lookup(table)
	if !ok {
		return query
	}

	upper := strings.ToUpper(query)
	if strings.Contains(upper, "LIMIT") || !strings.Contains(upper, "SELECT") {
		return query
	}

	limit := cfg.BusinessRules.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

// Insights summarizes a configured table. Unknown tables are an error.
func (r *TableRegistry) Insights(table string) (*Insights, error) {
	cfg, ok := r.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("table %q is not configured", table)
	}

	limit := cfg.BusinessRules.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	tips := make([]string, 0, 3)
	if len(cfg.Indexes) > 0 {
		tips = append(tips, fmt.Sprintf("Filter on the indexed columns: %s", strings.Join(cfg.Indexes, ", ")))
	}
	tips = append(tips,
		fmt.Sprintf("Limit result sets; the default for this table is %d rows", limit),
		"Prefer aggregations when analyzing large volumes",
	)

	return &Insights{
		Name:             cfg.Name,
		Alias:            cfg.Alias,
		Description:      cfg.Description,
		ColumnCount:      len(cfg.Columns),
		IndexedColumns:   cfg.Indexes,
		SuggestedQueries: r.SuggestQueries(table),
		BusinessRules:    cfg.BusinessRules,
		OptimizationTips: tips,
	}, nil
}

// ValidateQuery checks a table query against the registry. An empty
// registry accepts everything; identifier syntax is checked later when the
// SQL is built.
func (r *TableRegistry) ValidateQuery(q TableQuery) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tables) == 0 {
		return nil
	}

	cfg, ok := r.tables[strings.ToLower(q.Table)]
	if !ok {
		return fmt.Errorf("table %q is not configured", q.Table)
	}
	if len(cfg.Columns) == 0 {
		return nil
	}

	known := make(map[string]bool, len(cfg.Columns))
	for col := range cfg.Columns {
		known[strings.ToLower(col)] = true
	}
	checkColumn := func(col string) error {
		if !known[strings.ToLower(col)] {
			return fmt.Errorf("column %q is not part of table %q", col, cfg.Name)
		}
		return nil
	}

	for _, col := range q.Columns {
		if err := checkColumn(col); err != nil {
			return err
		}
	}
	for _, f := range q.Filters {
		if err := checkColumn(f.Column); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := checkColumn(strings.TrimPrefix(q.OrderBy, "-")); err != nil {
			return err
		}
	}
	return nil
}
