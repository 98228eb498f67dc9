package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArchiveCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veldscan_archive_calls_total",
			Help: "Scene archive calls by outcome",
		},
		[]string{"status"},
	)

	ArchiveCallLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veldscan_archive_call_latency_seconds",
			Help:    "Scene archive call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScenesComposited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veldscan_scenes_composited_total",
			Help: "Scenes folded into composites",
		},
	)

	ObservationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veldscan_observations_dropped_total",
			Help: "Field observations dropped during ingest or extraction",
		},
		[]string{"reason"},
	)

	SeriesYearsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veldscan_series_years_total",
			Help: "Time-series years by final status",
		},
		[]string{"status"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veldscan_exports_total",
			Help: "Export sink writes by kind and outcome",
		},
		[]string{"kind", "status"},
	)
)
