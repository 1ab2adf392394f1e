package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search router metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total routed searches",
		},
		[]string{"scope", "status"}, // scope: single|set|all; status: ok|partial|failed|invalid
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end routed search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"scope"},
	)

	SearchFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_fanout_collections",
			Help:      "Number of collections targeted per search",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	SearchSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_skipped_total",
			Help:      "Collections skipped during fan-out",
		},
		[]string{"reason"}, // timeout|error|canceled
	)
)

// Migration engine metrics.
var (
	MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Migrations by terminal status",
		},
		[]string{"status"},
	)

	MigrationVectorsMoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_vectors_moved_total",
			Help:      "Vector mappings re-homed by migrations",
		},
	)

	MigrationsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "migrations_running",
			Help:      "Migrations currently being executed by workers",
		},
	)
)

// Catalog metrics.
var (
	CatalogOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_operations_total",
			Help:      "Catalog operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	StatsSnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_snapshots_total",
			Help:      "Statistics snapshots appended by the aggregator",
		},
	)
)

var registerDomainOnce sync.Once

// RegisterDomainMetrics registers search, migration and catalog metrics.
func RegisterDomainMetrics() {
	registerDomainOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			SearchFanout,
			SearchSkippedTotal,
			MigrationsTotal,
			MigrationVectorsMoved,
			MigrationsRunning,
			CatalogOpsTotal,
			StatsSnapshotsTotal,
		)
	})
}
