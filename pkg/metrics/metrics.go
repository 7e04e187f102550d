// Package metrics provides Prometheus instrumentation for the IQC dashboard.
//
// # Overview
//
// The package exposes pre-registered collectors for the data-access layer:
//   - query latency per engine operation
//   - parquet ingestion counters (files and rows)
//   - memo table hit/miss counters per cached operation
//   - structure renderer outcomes
//
// # Basic Usage
//
//	timer := metrics.NewTimer("summary_stats")
//	result, err := engine.Query(ctx, paths, sql)
//	timer.ObserveQuery(err)
//
//	metrics.CacheLookups.WithLabelValues("unique_values", metrics.CacheHit).Inc()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes used as label values
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	// QueryDuration tracks engine query latency in seconds.
	// Labels: operation (summary_stats, filtered_data, ...), status (success/failure)
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iqc",
			Subsystem: "engine",
			Name:      "query_duration_seconds",
			Help:      "Duration of columnar engine queries in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation", "status"},
	)

	// FilesIngested counts parquet files materialized into the engine.
	FilesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iqc",
			Subsystem: "engine",
			Name:      "files_ingested_total",
			Help:      "Total number of parquet files ingested",
		},
	)

	// RowsIngested counts rows materialized into the engine.
	RowsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "iqc",
			Subsystem: "engine",
			Name:      "rows_ingested_total",
			Help:      "Total number of parquet rows ingested",
		},
	)

	// CacheLookups counts memo table lookups.
	// Labels: operation, outcome (hit/miss)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqc",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Memo table lookups by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// CacheEntries tracks the number of memoized entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iqc",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of memoized entries",
		},
	)

	// SourceFiles tracks the size of the current source file set.
	SourceFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iqc",
			Subsystem: "data",
			Name:      "source_files",
			Help:      "Number of files in the source file set",
		},
	)

	// Renders counts structure renderer outcomes.
	// Labels: outcome (rendered, rendered_unparsed, empty, capability_missing, embed_failed), style
	Renders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqc",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Structure render attempts by outcome",
		},
		[]string{"outcome", "style"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name is used as the operation label.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveQuery records the elapsed time in QueryDuration, labelled by err.
func (t *Timer) ObserveQuery(err error) time.Duration {
	d := t.Stop()
	status := "success"
	if err != nil {
		status = "failure"
	}
	QueryDuration.WithLabelValues(t.name, status).Observe(d.Seconds())
	return d
}
