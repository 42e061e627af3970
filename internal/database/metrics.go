package database

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics accumulates query counters per statement kind.
type Metrics struct {
	mu            sync.Mutex
	logger        *zap.Logger
	queryCounts   map[string]int64
	errorCounts   map[string]int64
	totalDuration map[string]time.Duration
	slowQueries   int64
}

// MetricsSnapshot is a point-in-time copy of the query counters.
type MetricsSnapshot struct {
	QueryCounts   map[string]int64   `json:"query_counts"`
	ErrorCounts   map[string]int64   `json:"error_counts"`
	AvgDurationMS map[string]float64 `json:"avg_duration_ms"`
	SlowQueries   int64              `json:"slow_queries"`
	CollectedAt   time.Time          `json:"collected_at"`
}

func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		logger:        logger,
		queryCounts:   make(map[string]int64),
		errorCounts:   make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
	}
}

// RecordQuery records one query execution of the given kind.
func (m *Metrics) RecordQuery(kind string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCounts[kind]++
	m.totalDuration[kind] += duration
	if err != nil {
		m.errorCounts[kind]++
	}
	if duration > 100*time.Millisecond {
		m.slowQueries++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &MetricsSnapshot{
		QueryCounts:   make(map[string]int64, len(m.queryCounts)),
		ErrorCounts:   make(map[string]int64, len(m.errorCounts)),
		AvgDurationMS: make(map[string]float64, len(m.queryCounts)),
		SlowQueries:   m.slowQueries,
		CollectedAt:   time.Now(),
	}
	for kind, count := range m.queryCounts {
		snap.QueryCounts[kind] = count
		if count > 0 {
			snap.AvgDurationMS[kind] = float64(m.totalDuration[kind].Milliseconds()) / float64(count)
		}
	}
	for kind, count := range m.errorCounts {
		snap.ErrorCounts[kind] = count
	}
	return snap
}
