package security

import (
	"sync"
	"time"
)

const (
	// perfSampleCapacity bounds the retained duration samples; the oldest
	// sample is dropped when a new one arrives at capacity
	perfSampleCapacity = 1000

	// recentSampleWindow is how far back Stats counts "recent" samples
	recentSampleWindow = 5 * time.Minute
)

// Monitor states reported by PerformanceStats.State.
const (
	PerfStateOK     = "ok"
	PerfStateNoData = "no_data"
)

// perfSample is one recorded query duration.
type perfSample struct {
	at       time.Time
	duration time.Duration
	kind     string
}

// PerformanceMonitor keeps a bounded window of query durations and error
// counts. It exists to answer one operational question: is query latency
// trending badly enough that the service should be considered degraded.
type PerformanceMonitor struct {
	mu          sync.Mutex
	samples     []perfSample // oldest first
	errorCounts map[string]int64
}

// PerformanceStats is a snapshot over the retained samples.
type PerformanceStats struct {
	// State is "no_data" until the first sample arrives, "ok" afterwards.
	// The remaining fields are meaningless while State is "no_data".
	State string `json:"state"`

	AvgQueryTime time.Duration `json:"avg_query_time"`
	MaxQueryTime time.Duration `json:"max_query_time"`
	MinQueryTime time.Duration `json:"min_query_time"`

	// TotalSamples counts retained samples, not all samples ever recorded.
	TotalSamples int `json:"total_samples"`

	// RecentSamples counts samples recorded within the last five minutes.
	RecentSamples int `json:"recent_samples"`

	ErrorCounts map[string]int64 `json:"error_counts,omitempty"`
}

// NewPerformanceMonitor creates an empty monitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		errorCounts: make(map[string]int64),
	}
}

// RecordQueryTime adds one duration sample. kind tags how the query was
// served ("cached", "database", "error"); empty defaults to "unknown".
func (m *PerformanceMonitor) RecordQueryTime(d time.Duration, kind string) {
	if kind == "" {
		kind = "unknown"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, perfSample{
		at:       time.Now(),
		duration: d,
		kind:     kind,
	})
	if len(m.samples) > perfSampleCapacity {
		m.samples = m.samples[len(m.samples)-perfSampleCapacity:]
	}
}

// RecordError counts one error by type.
func (m *PerformanceMonitor) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCounts[errorType]++
}

// Stats computes a snapshot over the retained samples.
func (m *PerformanceMonitor) Stats() PerformanceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) == 0 {
		return PerformanceStats{State: PerfStateNoData}
	}

	var total time.Duration
	maxTime := m.samples[0].duration
	minTime := m.samples[0].duration
	cutoff := time.Now().Add(-recentSampleWindow)
	recent := 0

	for _, s := range m.samples {
		total += s.duration
		if s.duration > maxTime {
			maxTime = s.duration
		}
		if s.duration < minTime {
			minTime = s.duration
		}
		if s.at.After(cutoff) {
			recent++
		}
	}

	errors := make(map[string]int64, len(m.errorCounts))
	for k, v := range m.errorCounts {
		errors[k] = v
	}

	return PerformanceStats{
		State:         PerfStateOK,
		AvgQueryTime:  total / time.Duration(len(m.samples)),
		MaxQueryTime:  maxTime,
		MinQueryTime:  minTime,
		TotalSamples:  len(m.samples),
		RecentSamples: recent,
		ErrorCounts:   errors,
	}
}
