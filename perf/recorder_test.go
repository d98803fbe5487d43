package perf

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRecorderDefaults(t *testing.T) {
	r := NewRecorder(discardLogger())

	if r.metricsCapacity != DefaultMetricsCapacity {
		t.Errorf("metricsCapacity = %d, want %d", r.metricsCapacity, DefaultMetricsCapacity)
	}
	if r.slowQueryCapacity != DefaultSlowQueryCapacity {
		t.Errorf("slowQueryCapacity = %d, want %d", r.slowQueryCapacity, DefaultSlowQueryCapacity)
	}
	if r.slowThreshold != DefaultSlowQueryThreshold {
		t.Errorf("slowThreshold = %v, want %v", r.slowThreshold, DefaultSlowQueryThreshold)
	}
	if r.logger == nil {
		t.Error("expected logger to be set")
	}
}

func TestNewRecorderWithConfigOverrides(t *testing.T) {
	r := NewRecorderWithConfig(RecorderConfig{
		MetricsCapacity:    10,
		SlowQueryCapacity:  3,
		SlowQueryThreshold: 500 * time.Millisecond,
		Logger:             discardLogger(),
	})

	if r.metricsCapacity != 10 {
		t.Errorf("metricsCapacity = %d, want 10", r.metricsCapacity)
	}
	if r.slowQueryCapacity != 3 {
		t.Errorf("slowQueryCapacity = %d, want 3", r.slowQueryCapacity)
	}
	if r.slowThreshold != 500*time.Millisecond {
		t.Errorf("slowThreshold = %v, want 500ms", r.slowThreshold)
	}
}

func TestAnalyzePatternsNoData(t *testing.T) {
	r := NewRecorder(discardLogger())

	analysis := r.AnalyzePatterns()
	if analysis.State != AnalysisStateNoData {
		t.Errorf("State = %q, want %q", analysis.State, AnalysisStateNoData)
	}
}

func TestAnalyzePatternsNoRecentData(t *testing.T) {
	r := NewRecorder(discardLogger())
	r.Record(Metric{
		QueryHash: "abc",
		Duration:  100 * time.Millisecond,
		Timestamp: time.Now().Add(-2 * time.Hour),
		Kind:      KindDatabase,
	})

	analysis := r.AnalyzePatterns()
	if analysis.State != AnalysisStateNoRecentData {
		t.Errorf("State = %q, want %q", analysis.State, AnalysisStateNoRecentData)
	}
}

func TestAnalyzePatterns(t *testing.T) {
	r := NewRecorder(discardLogger())

	r.Record(Metric{QueryHash: "q1", Duration: 10 * time.Millisecond, CacheHit: true, Kind: KindCached})
	r.Record(Metric{QueryHash: "q2", Duration: 100 * time.Millisecond, Kind: KindDatabase})
	r.Record(Metric{QueryHash: "q3", Duration: 3 * time.Second, Kind: KindDatabase})
	r.Record(Metric{QueryHash: "q4", Duration: 50 * time.Millisecond, Kind: KindError})

	analysis := r.AnalyzePatterns()

	if analysis.State != AnalysisStateOK {
		t.Fatalf("State = %q, want %q", analysis.State, AnalysisStateOK)
	}
	if analysis.TotalQueries != 4 {
		t.Errorf("TotalQueries = %d, want 4", analysis.TotalQueries)
	}
	if analysis.CacheHitRatio != 0.25 {
		t.Errorf("CacheHitRatio = %v, want 0.25", analysis.CacheHitRatio)
	}

	wantAvg := (10*time.Millisecond + 100*time.Millisecond + 3*time.Second + 50*time.Millisecond) / 4
	if analysis.AvgExecutionTime != wantAvg {
		t.Errorf("AvgExecutionTime = %v, want %v", analysis.AvgExecutionTime, wantAvg)
	}
	if analysis.MaxExecutionTime != 3*time.Second {
		t.Errorf("MaxExecutionTime = %v, want 3s", analysis.MaxExecutionTime)
	}
	if analysis.MinExecutionTime != 10*time.Millisecond {
		t.Errorf("MinExecutionTime = %v, want 10ms", analysis.MinExecutionTime)
	}
	if analysis.SlowQueryCount != 1 {
		t.Errorf("SlowQueryCount = %d, want 1", analysis.SlowQueryCount)
	}

	dbStats, ok := analysis.Kinds[KindDatabase]
	if !ok {
		t.Fatal("expected database kind stats")
	}
	if dbStats.Count != 2 {
		t.Errorf("database Count = %d, want 2", dbStats.Count)
	}
	if dbStats.MaxTime != 3*time.Second {
		t.Errorf("database MaxTime = %v, want 3s", dbStats.MaxTime)
	}
	if dbStats.MinTime != 100*time.Millisecond {
		t.Errorf("database MinTime = %v, want 100ms", dbStats.MinTime)
	}
	wantDBAvg := (100*time.Millisecond + 3*time.Second) / 2
	if dbStats.AvgTime != wantDBAvg {
		t.Errorf("database AvgTime = %v, want %v", dbStats.AvgTime, wantDBAvg)
	}

	cachedStats := analysis.Kinds[KindCached]
	if cachedStats.Count != 1 {
		t.Errorf("cached Count = %d, want 1", cachedStats.Count)
	}
	errorStats := analysis.Kinds[KindError]
	if errorStats.Count != 1 {
		t.Errorf("error Count = %d, want 1", errorStats.Count)
	}

	// CacheStats is only attached by the Analyzer.
	if analysis.CacheStats.MaxSize != 0 {
		t.Errorf("CacheStats.MaxSize = %d, want 0", analysis.CacheStats.MaxSize)
	}
}

func TestRecordBoundsMetricHistory(t *testing.T) {
	r := NewRecorderWithConfig(RecorderConfig{
		MetricsCapacity: 5,
		Logger:          discardLogger(),
	})

	for i := 0; i < 8; i++ {
		r.Record(Metric{QueryHash: fmt.Sprintf("q%d", i), Duration: time.Millisecond, Kind: KindDatabase})
	}

	analysis := r.AnalyzePatterns()
	if analysis.TotalQueries != 5 {
		t.Errorf("TotalQueries = %d, want 5", analysis.TotalQueries)
	}
}

func TestRecordFillsZeroTimestamp(t *testing.T) {
	r := NewRecorder(discardLogger())
	r.Record(Metric{QueryHash: "q1", Duration: time.Millisecond, Kind: KindDatabase})

	analysis := r.AnalyzePatterns()
	if analysis.State != AnalysisStateOK {
		t.Errorf("State = %q, want %q", analysis.State, AnalysisStateOK)
	}
}

func TestRecordSlowQueryIgnoresFastQueries(t *testing.T) {
	r := NewRecorder(discardLogger())

	r.RecordSlowQuery("SELECT * FROM users", time.Second)
	r.RecordSlowQuery("SELECT * FROM users", 2*time.Second) // at threshold, not above

	if got := r.SlowQueries(0); len(got) != 0 {
		t.Errorf("SlowQueries returned %d records, want 0", len(got))
	}
}

func TestRecordSlowQuery(t *testing.T) {
	r := NewRecorder(discardLogger())

	r.RecordSlowQuery("SELECT * FROM orders WHERE status = 'pending'", 2500*time.Millisecond)

	got := r.SlowQueries(0)
	if len(got) != 1 {
		t.Fatalf("SlowQueries returned %d records, want 1", len(got))
	}
	if got[0].Query != "SELECT * FROM orders WHERE status = 'pending'" {
		t.Errorf("Query = %q", got[0].Query)
	}
	if got[0].Duration != 2500*time.Millisecond {
		t.Errorf("Duration = %v, want 2.5s", got[0].Duration)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestRecordSlowQueryTruncatesLongQueries(t *testing.T) {
	r := NewRecorder(discardLogger())
	long := strings.Repeat("x", 2*slowQuerySnippetLength)

	r.RecordSlowQuery(long, 3*time.Second)

	got := r.SlowQueries(0)
	if len(got) != 1 {
		t.Fatalf("SlowQueries returned %d records, want 1", len(got))
	}
	if len(got[0].Query) != slowQuerySnippetLength+3 {
		t.Errorf("snippet length = %d, want %d", len(got[0].Query), slowQuerySnippetLength+3)
	}
	if !strings.HasSuffix(got[0].Query, "...") {
		t.Errorf("snippet %q does not end with ellipsis", got[0].Query)
	}
}

func TestRecordSlowQueryBoundsHistory(t *testing.T) {
	r := NewRecorderWithConfig(RecorderConfig{
		SlowQueryCapacity:  3,
		SlowQueryThreshold: time.Millisecond,
		Logger:             discardLogger(),
	})

	for i := 0; i < 5; i++ {
		r.RecordSlowQuery(fmt.Sprintf("SELECT %d", i), 10*time.Millisecond)
	}

	got := r.SlowQueries(0)
	if len(got) != 3 {
		t.Fatalf("SlowQueries returned %d records, want 3", len(got))
	}
	// Oldest records were dropped.
	if got[0].Query != "SELECT 2" {
		t.Errorf("first retained query = %q, want %q", got[0].Query, "SELECT 2")
	}
	if got[2].Query != "SELECT 4" {
		t.Errorf("last retained query = %q, want %q", got[2].Query, "SELECT 4")
	}
}

func TestSlowQueriesLimit(t *testing.T) {
	r := NewRecorderWithConfig(RecorderConfig{
		SlowQueryThreshold: time.Millisecond,
		Logger:             discardLogger(),
	})

	for i := 0; i < 5; i++ {
		r.RecordSlowQuery(fmt.Sprintf("SELECT %d", i), 10*time.Millisecond)
	}

	got := r.SlowQueries(2)
	if len(got) != 2 {
		t.Fatalf("SlowQueries(2) returned %d records, want 2", len(got))
	}
	if got[0].Query != "SELECT 3" || got[1].Query != "SELECT 4" {
		t.Errorf("got queries %q and %q, want the two most recent", got[0].Query, got[1].Query)
	}
}

func TestRecorderConcurrentAccess(t *testing.T) {
	r := NewRecorder(discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Record(Metric{
					QueryHash: fmt.Sprintf("q%d-%d", n, j),
					Duration:  time.Millisecond,
					Kind:      KindDatabase,
				})
				r.RecordSlowQuery("SELECT pg_sleep(10)", 10*time.Second)
			}
		}(i)
	}
	wg.Wait()

	analysis := r.AnalyzePatterns()
	if analysis.TotalQueries != 200 {
		t.Errorf("TotalQueries = %d, want 200", analysis.TotalQueries)
	}
	if got := r.SlowQueries(0); len(got) != DefaultSlowQueryCapacity {
		t.Errorf("SlowQueries returned %d records, want %d", len(got), DefaultSlowQueryCapacity)
	}
}
