// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncRuns        *prometheus.CounterVec
	SyncDuration    *prometheus.HistogramVec
	RecordsUpserted *prometheus.CounterVec

	// Normalization metrics
	ParseFailures  *prometheus.CounterVec
	SuspectAmounts *prometheus.CounterVec

	// Backfill metrics
	VolumeBackfillSkips prometheus.Counter

	// Snapshot metrics
	SnapshotLogFailures prometheus.Counter

	// Projection metrics
	ProjectionRebuildDuration prometheus.Histogram
	ProjectionRows            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solemarket"
	}

	return &Metrics{
		// Sync metrics
		SyncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Provider sync executions by provider and outcome",
		}, []string{"provider", "outcome"}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "End-to-end provider sync latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		RecordsUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_upserted_total",
			Help:      "Canonical market records upserted by provider",
		}, []string{"provider"}),

		// Normalization metrics
		ParseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "parse_failures_total",
			Help:      "Provider entries dropped or amounts discarded during normalization",
		}, []string{"provider"}),
		SuspectAmounts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "suspect_amounts_total",
			Help:      "Parsed amounts above the plausibility ceiling",
		}, []string{"provider"}),

		// Backfill metrics
		VolumeBackfillSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "volume_backfill_skips_total",
			Help:      "Sales volume updates skipped because no record matched",
		}),

		// Snapshot metrics
		SnapshotLogFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "log_failures_total",
			Help:      "Raw snapshot writes that failed",
		}),

		// Projection metrics
		ProjectionRebuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "rebuild_duration_seconds",
			Help:      "Latest snapshot projection rebuild latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ProjectionRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "rows",
			Help:      "Identities written by the most recent projection rebuild",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncRun records a finished provider sync.
func RecordSyncRun(provider, outcome string, durationSeconds float64) {
	DefaultMetrics.SyncRuns.WithLabelValues(provider, outcome).Inc()
	DefaultMetrics.SyncDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordUpserts adds to the upserted-records counter for a provider.
func RecordUpserts(provider string, count int) {
	DefaultMetrics.RecordsUpserted.WithLabelValues(provider).Add(float64(count))
}

// RecordParseFailure increments the parse-failure counter for a provider.
func RecordParseFailure(provider string) {
	DefaultMetrics.ParseFailures.WithLabelValues(provider).Inc()
}

// RecordSuspectAmount increments the suspect-amount counter for a provider.
func RecordSuspectAmount(provider string) {
	DefaultMetrics.SuspectAmounts.WithLabelValues(provider).Inc()
}

// RecordVolumeBackfillSkip increments the backfill-skip counter.
func RecordVolumeBackfillSkip() {
	DefaultMetrics.VolumeBackfillSkips.Inc()
}

// RecordSnapshotLogFailure increments the snapshot-write-failure counter.
func RecordSnapshotLogFailure() {
	DefaultMetrics.SnapshotLogFailures.Inc()
}

// RecordProjectionRebuild records a completed projection rebuild.
func RecordProjectionRebuild(rows int, durationSeconds float64) {
	DefaultMetrics.ProjectionRebuildDuration.Observe(durationSeconds)
	DefaultMetrics.ProjectionRows.Set(float64(rows))
}
