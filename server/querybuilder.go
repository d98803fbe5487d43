package server

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// identPattern accepts plain SQL identifiers. Anything needing quoting is
// rejected rather than quoted.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// filterOperators maps the supported filter operators onto SQL. The in
// operator is handled separately because it expands into a value list.
var filterOperators = map[string]string{
	"":     "=",
	"eq":   "=",
	"neq":  "<>",
	"gt":   ">",
	"gte":  ">=",
	"lt":   "<",
	"lte":  "<=",
	"like": "LIKE",
}

// Filter is one WHERE condition of a table query.
type Filter struct {
	// Column the condition applies to
	Column string `json:"column"`

	// Operator is one of eq, neq, gt, gte, lt, lte, like, in.
	// Empty means eq.
	Operator string `json:"operator,omitempty"`

	// Value is bound as a named parameter, never inserted into the SQL
	// text. The in operator requires a slice of values.
	Value any `json:"value"`
}

// TableQuery describes a structured query against one table. The service
// turns it into a parameterized SELECT; callers never supply SQL text.
type TableQuery struct {
	// Identity is the caller identity for rate limiting and auditing
	Identity string `json:"identity,omitempty"`

	// SourceIP is the caller's source IP for audit attribution
	SourceIP string `json:"source_ip,omitempty"`

	// Table to query, by database name or registry alias
	Table string `json:"table"`

	// Columns to select. Empty selects all columns.
	Columns []string `json:"columns,omitempty"`

	// Filters are ANDed WHERE conditions
	Filters []Filter `json:"filters,omitempty"`

	// OrderBy is the column to sort by. A leading "-" sorts descending.
	OrderBy string `json:"order_by,omitempty"`

	// Limit caps the result set. Zero applies the table or service
	// default; the limit is never unbounded.
	Limit int `json:"limit,omitempty"`

	// Offset skips rows for pagination
	Offset int `json:"offset,omitempty"`
}

// buildSelect renders the query as SQL with named parameters. Identifiers
// are validated against identPattern; every value is parameterized.
func buildSelect(q TableQuery) (string, map[string]any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("table is required")
	}
	if !identPattern.MatchString(q.Table) {
		return "", nil, fmt.Errorf("invalid table name %q", q.Table)
	}
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("limit must not be negative, got %d", q.Limit)
	}
	if q.Offset < 0 {
		return "", nil, fmt.Errorf("offset must not be negative, got %d", q.Offset)
	}

	columns := "*"
	if len(q.Columns) > 0 {
		for _, col := range q.Columns {
			if !identPattern.MatchString(col) {
				return "", nil, fmt.Errorf("invalid column name %q", col)
			}
		}
		columns = strings.Join(q.Columns, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, q.Table)

	params := make(map[string]any, len(q.Filters))
	if len(q.Filters) > 0 {
		conditions := make([]string, 0, len(q.Filters))
		for i, f := range q.Filters {
			condition, err := buildCondition(i, f, params)
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, condition)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}

	if q.OrderBy != "" {
		column := q.OrderBy
		descending := false
		if strings.HasPrefix(column, "-") {
			column = column[1:]
			descending = true
		}
		if !identPattern.MatchString(column) {
			return "", nil, fmt.Errorf("invalid order column %q", column)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(column)
		if descending {
			b.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	return b.String(), params, nil
}

// buildCondition renders one filter, registering its values in params.
// Parameters are named f0, f1, ... by filter position; in lists expand to
// f0_0, f0_1, ... because the executor binds named parameters one to one.
func buildCondition(i int, f Filter, params map[string]any) (string, error) {
	if !identPattern.MatchString(f.Column) {
		return "", fmt.Errorf("invalid column name %q", f.Column)
	}
	name := fmt.Sprintf("f%d", i)

	if f.Operator == "in" {
		rv := reflect.ValueOf(f.Value)
		if f.Value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return "", fmt.Errorf("operator \"in\" needs a slice of values for column %q", f.Column)
		}
		if rv.Len() == 0 {
			return "", fmt.Errorf("operator \"in\" needs at least one value for column %q", f.Column)
		}
		placeholders := make([]string, rv.Len())
		for j := 0; j < rv.Len(); j++ {
			p := fmt.Sprintf("%s_%d", name, j)
			params[p] = rv.Index(j).Interface()
			placeholders[j] = ":" + p
		}
		return fmt.Sprintf("%s IN (%s)", f.Column, strings.Join(placeholders, ", ")), nil
	}

	op, ok := filterOperators[f.Operator]
	if !ok {
		return "", fmt.Errorf("unknown filter operator %q for column %q", f.Operator, f.Column)
	}
	params[name] = f.Value
	return fmt.Sprintf("%s %s :%s", f.Column, op, name), nil
}
