package perf

import (
	"log/slog"
	"sync"
	"time"

	"github.com/giantswarm/mcp-sqlguard/cache"
	"github.com/giantswarm/mcp-sqlguard/internal/util"
)

const (
	// DefaultMetricsCapacity bounds the in-memory metric history.
	DefaultMetricsCapacity = 1000

	// DefaultSlowQueryCapacity bounds the retained slow-query records.
	DefaultSlowQueryCapacity = 100

	// DefaultSlowQueryThreshold is the execution time above which a query
	// is recorded as slow.
	DefaultSlowQueryThreshold = 2 * time.Second

	// slowQuerySnippetLength is how much query text a slow-query record
	// retains.
	slowQuerySnippetLength = 200

	// slowQueryLogLength is how much query text the slow-query warning
	// log shows.
	slowQueryLogLength = 100

	// analysisWindow is how far back AnalyzePatterns looks.
	analysisWindow = time.Hour
)

// Analysis states reported by Analysis.State.
const (
	AnalysisStateOK           = "ok"
	AnalysisStateNoData       = "no_data"
	AnalysisStateNoRecentData = "no_recent_data"
)

// Kind classifies how a query was answered.
type Kind string

const (
	// KindCached marks a query served from the result cache.
	KindCached Kind = "cached"

	// KindDatabase marks a query answered by the executor.
	KindDatabase Kind = "database"

	// KindError marks a query whose execution failed.
	KindError Kind = "error"
)

// Metric is one observed query execution. QueryHash is the short
// fingerprint shared with the audit trail so operators can correlate the
// two; raw query text never enters the metric history.
type Metric struct {
	QueryHash  string
	Duration   time.Duration
	ResultSize int
	Timestamp  time.Time
	CacheHit   bool
	Kind       Kind
}

// SlowQuery is a retained record of an execution that crossed the slow
// threshold. Query holds a bounded snippet, not the full text.
type SlowQuery struct {
	Query     string        `json:"query"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// KindStats summarizes executions of one kind within the analysis window.
type KindStats struct {
	Count   int           `json:"count"`
	AvgTime time.Duration `json:"avg_time"`
	MaxTime time.Duration `json:"max_time"`
	MinTime time.Duration `json:"min_time"`
}

// Analysis summarizes query behavior over the analysis window.
type Analysis struct {
	// State is "no_data" when nothing has been recorded,
	// "no_recent_data" when records exist but none fall inside the
	// window, and "ok" otherwise. The remaining fields are meaningless
	// unless State is "ok".
	State string `json:"state"`

	TotalQueries     int           `json:"total_queries"`
	CacheHitRatio    float64       `json:"cache_hit_ratio"`
	AvgExecutionTime time.Duration `json:"avg_execution_time"`
	MaxExecutionTime time.Duration `json:"max_execution_time"`
	MinExecutionTime time.Duration `json:"min_execution_time"`
	SlowQueryCount   int           `json:"slow_query_count"`

	// Kinds breaks the window down by how queries were answered.
	Kinds map[Kind]KindStats `json:"kinds,omitempty"`

	// CacheStats is populated by Analyzer.AnalyzePatterns; it is zero
	// when an Analysis comes straight from a Recorder.
	CacheStats cache.Stats `json:"cache_stats"`
}

// RecorderConfig holds configuration for a Recorder.
type RecorderConfig struct {
	// MetricsCapacity caps how many recent metrics are retained.
	// Default: DefaultMetricsCapacity
	MetricsCapacity int

	// SlowQueryCapacity caps how many slow-query records are retained.
	// Default: DefaultSlowQueryCapacity
	SlowQueryCapacity int

	// SlowQueryThreshold is the execution time above which a query is
	// recorded as slow.
	// Default: DefaultSlowQueryThreshold
	SlowQueryThreshold time.Duration

	// Logger receives slow-query warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Recorder keeps a bounded history of query metrics and slow-query
// records. It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	metrics     []Metric    // oldest first
	slowQueries []SlowQuery // oldest first

	metricsCapacity   int
	slowQueryCapacity int
	slowThreshold     time.Duration

	logger *slog.Logger
}

// NewRecorder creates a Recorder with default capacities.
func NewRecorder(logger *slog.Logger) *Recorder {
	return NewRecorderWithConfig(RecorderConfig{Logger: logger})
}

// NewRecorderWithConfig creates a Recorder with custom limits.
func NewRecorderWithConfig(cfg RecorderConfig) *Recorder {
	if cfg.MetricsCapacity <= 0 {
		cfg.MetricsCapacity = DefaultMetricsCapacity
	}
	if cfg.SlowQueryCapacity <= 0 {
		cfg.SlowQueryCapacity = DefaultSlowQueryCapacity
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultSlowQueryThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Recorder{
		metricsCapacity:   cfg.MetricsCapacity,
		slowQueryCapacity: cfg.SlowQueryCapacity,
		slowThreshold:     cfg.SlowQueryThreshold,
		logger:            cfg.Logger,
	}
}

// Record appends a metric to the bounded history, dropping the oldest
// entries past capacity. A zero Timestamp is filled with the current
// time.
func (r *Recorder) Record(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics = append(r.metrics, m)
	if len(r.metrics) > r.metricsCapacity {
		r.metrics = r.metrics[len(r.metrics)-r.metricsCapacity:]
	}
}

// RecordSlowQuery retains a snippet of a query whose execution crossed
// the slow threshold and logs a warning. Executions at or below the
// threshold are ignored.
func (r *Recorder) RecordSlowQuery(query string, duration time.Duration) {
	if duration <= r.slowThreshold {
		return
	}

	record := SlowQuery{
		Query:     util.Snippet(query, slowQuerySnippetLength),
		Duration:  duration,
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	r.slowQueries = append(r.slowQueries, record)
	if len(r.slowQueries) > r.slowQueryCapacity {
		r.slowQueries = r.slowQueries[len(r.slowQueries)-r.slowQueryCapacity:]
	}
	r.mu.Unlock()

	r.logger.Warn("Slow query detected",
		"duration", duration,
		"query_prefix", util.SafeTruncate(query, slowQueryLogLength),
	)
}

// SlowQueries returns up to limit of the most recent slow-query records,
// oldest first. limit <= 0 returns all retained records.
func (r *Recorder) SlowQueries(limit int) []SlowQuery {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.slowQueries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]SlowQuery, n)
	copy(out, r.slowQueries[len(r.slowQueries)-n:])
	return out
}

// AnalyzePatterns summarizes the metrics recorded within the last hour.
func (r *Recorder) AnalyzePatterns() Analysis {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.metrics) == 0 {
		return Analysis{State: AnalysisStateNoData}
	}

	windowStart := time.Now().Add(-analysisWindow)
	recent := make([]Metric, 0, len(r.metrics))
	for _, m := range r.metrics {
		if m.Timestamp.After(windowStart) {
			recent = append(recent, m)
		}
	}
	if len(recent) == 0 {
		return Analysis{State: AnalysisStateNoRecentData}
	}

	var (
		total   time.Duration
		maxTime = recent[0].Duration
		minTime = recent[0].Duration
		hits    int
		slow    int
	)
	perKind := make(map[Kind]*kindAccumulator)

	for _, m := range recent {
		total += m.Duration
		if m.Duration > maxTime {
			maxTime = m.Duration
		}
		if m.Duration < minTime {
			minTime = m.Duration
		}
		if m.CacheHit {
			hits++
		}
		if m.Duration > r.slowThreshold {
			slow++
		}

		acc := perKind[m.Kind]
		if acc == nil {
			acc = &kindAccumulator{max: m.Duration, min: m.Duration}
			perKind[m.Kind] = acc
		}
		acc.add(m.Duration)
	}

	kinds := make(map[Kind]KindStats, len(perKind))
	for kind, acc := range perKind {
		kinds[kind] = acc.stats()
	}

	return Analysis{
		State:            AnalysisStateOK,
		TotalQueries:     len(recent),
		CacheHitRatio:    float64(hits) / float64(len(recent)),
		AvgExecutionTime: total / time.Duration(len(recent)),
		MaxExecutionTime: maxTime,
		MinExecutionTime: minTime,
		SlowQueryCount:   slow,
		Kinds:            kinds,
	}
}

// kindAccumulator aggregates durations for one query kind.
type kindAccumulator struct {
	count int
	total time.Duration
	max   time.Duration
	min   time.Duration
}

func (a *kindAccumulator) add(d time.Duration) {
	a.count++
	a.total += d
	if d > a.max {
		a.max = d
	}
	if d < a.min {
		a.min = d
	}
}

func (a *kindAccumulator) stats() KindStats {
	return KindStats{
		Count:   a.count,
		AvgTime: a.total / time.Duration(a.count),
		MaxTime: a.max,
		MinTime: a.min,
	}
}
