package perf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/mcp-sqlguard/cache"
	"github.com/giantswarm/mcp-sqlguard/executor"
	"github.com/giantswarm/mcp-sqlguard/internal/util"
)

// Suggestion and health grading thresholds.
const (
	lowHitRatio  = 0.3
	goodHitRatio = 0.6
	highHitRatio = 0.8

	fairAvgTime = time.Second
	poorAvgTime = 2 * time.Second

	slowCountNotice = 5
	slowCountAlarm  = 10

	cacheFillNotice = 0.9
)

// Health statuses, ordered from best to worst.
const (
	HealthExcellent = "excellent"
	HealthFair      = "fair"
	HealthPoor      = "poor"
	HealthUnknown   = "unknown"
)

// dashboardSlowQueryLimit caps how many slow queries a dashboard shows.
const dashboardSlowQueryLimit = 10

// Analyzer couples a result cache with query execution and records a
// metric for every query it serves.
type Analyzer struct {
	cache    cache.ResultCache
	recorder *Recorder
	group    singleflight.Group
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer over the given result cache. A nil
// recorder gets a fresh one with default capacities.
func NewAnalyzer(resultCache cache.ResultCache, recorder *Recorder, logger *slog.Logger) (*Analyzer, error) {
	if resultCache == nil {
		return nil, fmt.Errorf("result cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = NewRecorder(logger)
	}

	return &Analyzer{
		cache:    resultCache,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Recorder returns the underlying metrics recorder.
func (a *Analyzer) Recorder() *Recorder {
	return a.recorder
}

// ============================================================================
// Execution path
// ============================================================================

// CachedExecute serves a query from the result cache when possible and
// falls back to the executor on a miss. Concurrent identical misses are
// collapsed into a single execution whose result is shared; the first
// caller's context drives the shared execution. The returned kind reports
// how the query was served so callers can attribute the round trip.
//
// Every call records exactly one metric. Executor errors are returned
// unchanged and their results are never cached.
func (a *Analyzer) CachedExecute(ctx context.Context, exec executor.Executor, query string, params map[string]any) ([]byte, Kind, error) {
	start := time.Now()
	queryHash := util.Fingerprint(query)

	key, keyErr := cache.Key(query, params)
	if keyErr != nil {
		// Parameters that cannot be serialized cannot be cached either.
		a.logger.Debug("Bypassing result cache", "query_hash", queryHash, "error", keyErr)
		return a.executeDirect(ctx, exec, query, params, queryHash, start)
	}

	if result, err := a.cache.Get(ctx, key); err == nil {
		a.recorder.Record(Metric{
			QueryHash:  queryHash,
			Duration:   time.Since(start),
			ResultSize: len(result),
			CacheHit:   true,
			Kind:       KindCached,
		})
		return result, KindCached, nil
	}

	v, err, shared := a.group.Do(key, func() (any, error) {
		result, execErr := exec.Execute(ctx, query, params)
		if execErr != nil {
			return nil, execErr
		}
		if putErr := a.cache.Put(ctx, key, result); putErr != nil {
			a.logger.Warn("Storing query result in cache failed",
				"query_hash", queryHash,
				"error", putErr,
			)
		}
		return result, nil
	})

	duration := time.Since(start)
	if err != nil {
		a.recorder.Record(Metric{
			QueryHash: queryHash,
			Duration:  duration,
			Kind:      KindError,
		})
		return nil, KindError, err
	}

	if shared {
		a.logger.Debug("Query result shared with concurrent caller", "query_hash", queryHash)
	}

	result := v.([]byte)
	a.recorder.Record(Metric{
		QueryHash:  queryHash,
		Duration:   duration,
		ResultSize: len(result),
		Kind:       KindDatabase,
	})
	a.recorder.RecordSlowQuery(query, duration)

	return result, KindDatabase, nil
}

// executeDirect runs a query without touching the cache.
func (a *Analyzer) executeDirect(ctx context.Context, exec executor.Executor, query string, params map[string]any, queryHash string, start time.Time) ([]byte, Kind, error) {
	result, err := exec.Execute(ctx, query, params)
	duration := time.Since(start)

	if err != nil {
		a.recorder.Record(Metric{
			QueryHash: queryHash,
			Duration:  duration,
			Kind:      KindError,
		})
		return nil, KindError, err
	}

	a.recorder.Record(Metric{
		QueryHash:  queryHash,
		Duration:   duration,
		ResultSize: len(result),
		Kind:       KindDatabase,
	})
	a.recorder.RecordSlowQuery(query, duration)

	return result, KindDatabase, nil
}

// ============================================================================
// Analysis and monitoring
// ============================================================================

// AnalyzePatterns returns the recorder's window analysis with live cache
// statistics attached.
func (a *Analyzer) AnalyzePatterns() Analysis {
	analysis := a.recorder.AnalyzePatterns()
	analysis.CacheStats = a.cache.Stats()
	return analysis
}

// Suggestions derives tuning advice from the current analysis.
func (a *Analyzer) Suggestions() []string {
	return suggestionsFromAnalysis(a.AnalyzePatterns())
}

// HealthReport grades recent query behavior from 100 down. Each degraded
// factor subtracts from the score; the status reflects the worst factor
// observed, not the last one scored.
func (a *Analyzer) HealthReport() HealthReport {
	return healthFromAnalysis(a.AnalyzePatterns())
}

// Dashboard assembles a point-in-time monitoring snapshot.
func (a *Analyzer) Dashboard() Dashboard {
	analysis := a.AnalyzePatterns()

	return Dashboard{
		Analysis:    analysis,
		Suggestions: suggestionsFromAnalysis(analysis),
		SlowQueries: a.recorder.SlowQueries(dashboardSlowQueryLimit),
		Health:      healthFromAnalysis(analysis),
		Timestamp:   time.Now(),
	}
}

// Dashboard bundles analysis, suggestions, and health for monitoring.
type Dashboard struct {
	Analysis    Analysis     `json:"performance_analysis"`
	Suggestions []string     `json:"optimization_suggestions"`
	SlowQueries []SlowQuery  `json:"slow_queries"`
	Health      HealthReport `json:"system_health"`
	Timestamp   time.Time    `json:"timestamp"`
}

// HealthFactors records the inputs behind a health score.
type HealthFactors struct {
	AvgExecutionTime time.Duration `json:"avg_execution_time"`
	CacheHitRatio    float64       `json:"cache_hit_ratio"`
	SlowQueryCount   int           `json:"slow_query_count"`
}

// HealthReport grades recent query behavior.
type HealthReport struct {
	Score   int           `json:"score"`
	Status  string        `json:"status"`
	Factors HealthFactors `json:"factors"`
}

func suggestionsFromAnalysis(analysis Analysis) []string {
	if analysis.State != AnalysisStateOK {
		return []string{"Not enough recent query data for analysis."}
	}

	var suggestions []string

	if analysis.CacheHitRatio < lowHitRatio {
		suggestions = append(suggestions, "Cache hit ratio is low (<30%). Consider increasing the cache TTL.")
	} else if analysis.CacheHitRatio > highHitRatio {
		suggestions = append(suggestions, "Excellent cache hit ratio (>80%). System is well optimized.")
	}

	if analysis.AvgExecutionTime > fairAvgTime {
		suggestions = append(suggestions, "Average execution time is high (>1s). Review database indexes.")
	}

	if analysis.SlowQueryCount > slowCountNotice {
		suggestions = append(suggestions, fmt.Sprintf("%d slow queries detected. Optimize the most frequent queries.", analysis.SlowQueryCount))
	}

	if analysis.CacheStats.MaxSize > 0 {
		fill := float64(analysis.CacheStats.Size) / float64(analysis.CacheStats.MaxSize)
		if fill > cacheFillNotice {
			suggestions = append(suggestions, "Cache is almost full. Consider increasing the cache size.")
		}
	}

	if len(suggestions) == 0 {
		return []string{"System is operating within normal parameters."}
	}
	return suggestions
}

func healthFromAnalysis(analysis Analysis) HealthReport {
	if analysis.State != AnalysisStateOK {
		return HealthReport{Score: 0, Status: HealthUnknown}
	}

	score := 100
	status := HealthExcellent
	worsen := func(to string) {
		if healthRank(to) > healthRank(status) {
			status = to
		}
	}

	if analysis.AvgExecutionTime > poorAvgTime {
		score -= 30
		worsen(HealthPoor)
	} else if analysis.AvgExecutionTime > fairAvgTime {
		score -= 15
		worsen(HealthFair)
	}

	if analysis.CacheHitRatio < lowHitRatio {
		score -= 20
		worsen(HealthPoor)
	} else if analysis.CacheHitRatio < goodHitRatio {
		score -= 10
		worsen(HealthFair)
	}

	if analysis.SlowQueryCount > slowCountAlarm {
		score -= 25
		worsen(HealthPoor)
	} else if analysis.SlowQueryCount > slowCountNotice {
		score -= 10
		worsen(HealthFair)
	}

	if score < 0 {
		score = 0
	}

	return HealthReport{
		Score:  score,
		Status: status,
		Factors: HealthFactors{
			AvgExecutionTime: analysis.AvgExecutionTime,
			CacheHitRatio:    analysis.CacheHitRatio,
			SlowQueryCount:   analysis.SlowQueryCount,
		},
	}
}

func healthRank(status string) int {
	switch status {
	case HealthPoor:
		return 2
	case HealthFair:
		return 1
	default:
		return 0
	}
}
