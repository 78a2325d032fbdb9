// Package metrics defines prometheus metric types and provides convenience
// methods to add accounting to various parts of the pipeline.
//
// When defining new operations or metrics, these are helpful values to track:
//   - things coming into or out of the system: files, records, cells, queries.
//   - the success or error status of any of the above.
//   - the distribution of processing latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FileCount counts the raw files handled per datatype.
	//
	// Provides metrics:
	//   pq_file_total{kind="timewindow|signal|groundtruth|queuemonitor", status="ok|empty|error"}
	// Example usage:
	//   metrics.FileCount.WithLabelValues("timewindow", "ok").Inc()
	FileCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_file_total",
			Help: "Number of raw data files read, by datatype and outcome.",
		}, []string{"kind", "status"})

	// CellCount counts raw cells by their fate during set filtering.
	//
	// Provides metrics:
	//   pq_cell_total{status="live|stale|unused"}
	// Example usage:
	//   metrics.CellCount.WithLabelValues("live").Inc()
	CellCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_cell_total",
			Help: "Number of snapshot cells, by filtering outcome.",
		}, []string{"status"})

	// WrapCount reports the current timestamp rollover counter.
	//
	// Provides metrics:
	//   pq_wrap_count
	// Example usage:
	//   metrics.WrapCount.Set(float64(wrap))
	WrapCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pq_wrap_count",
		Help: "Observed 32-bit timestamp rollovers since the first snapshot.",
	})

	// WrapAnomalyCount counts snapshots whose largest trimmed timestamp
	// decreased without wrap justification (idle data plane).
	//
	// Provides metrics:
	//   pq_wrap_anomalies_total
	// Example usage:
	//   metrics.WrapAnomalyCount.Inc()
	WrapAnomalyCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pq_wrap_anomalies_total",
		Help: "Snapshots with a non-increasing largest tts and no wrap.",
	})

	// QueryCount counts interval queries by outcome.
	//
	// Provides metrics:
	//   pq_query_total{outcome="ok|partial|empty"}
	// Example usage:
	//   metrics.QueryCount.WithLabelValues("ok").Inc()
	QueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_query_total",
			Help: "Interval queries served, by coverage outcome.",
		}, []string{"outcome"})

	// QueryCellsHistogram measures the number of live cells scanned per query.
	//
	// Provides metrics:
	//   pq_query_cells
	// Example usage:
	//   metrics.QueryCellsHistogram.Observe(float64(cells))
	QueryCellsHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pq_query_cells",
		Help:    "Live cells scanned per interval query.",
		Buckets: prometheus.ExponentialBuckets(16, 2, 12),
	})

	// SignalCount counts data plane signal records by correlation outcome.
	//
	// Provides metrics:
	//   pq_signal_total{status="matched|fallback|dropped"}
	// Example usage:
	//   metrics.SignalCount.WithLabelValues("matched").Inc()
	SignalCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_signal_total",
			Help: "Signal records processed, by correlation outcome.",
		}, []string{"status"})

	// GroundTruthRecords counts INT tap records by ingest outcome.
	//
	// Provides metrics:
	//   pq_groundtruth_records_total{status="ok|noise|warmup"}
	// Example usage:
	//   metrics.GroundTruthRecords.WithLabelValues("ok").Inc()
	GroundTruthRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_groundtruth_records_total",
			Help: "Ground truth records parsed, by ingest outcome.",
		}, []string{"status"})

	// EvalSampleCount counts evaluation samples by queue depth bucket.
	//
	// Provides metrics:
	//   pq_eval_samples_total{bucket}
	// Example usage:
	//   metrics.EvalSampleCount.WithLabelValues("0").Inc()
	EvalSampleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pq_eval_samples_total",
			Help: "Evaluation samples issued, by queue depth bucket.",
		}, []string{"bucket"})
)
