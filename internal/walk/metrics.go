package walk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names follow quay-claircore/datastore/postgres/get.go's
// promauto.NewCounterVec/NewHistogramVec package-level declaration style.
var (
	parserInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pkgscan",
			Subsystem: "walk",
			Name:      "parser_invocations_total",
			Help:      "Total number of parser invocations, by parser id.",
		},
		[]string{"parser"},
	)
	parserErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pkgscan",
			Subsystem: "walk",
			Name:      "parser_errors_total",
			Help:      "Total number of parser invocations that fell back to a default PackageData.",
		},
		[]string{"parser"},
	)
	fileScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pkgscan",
			Subsystem: "walk",
			Name:      "file_scan_duration_seconds",
			Help:      "Time spent in Phase 2 (parse + copyright-detect) per file.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	fileScanTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pkgscan",
			Subsystem: "walk",
			Name:      "file_scan_timeouts_total",
			Help:      "Total number of files that exceeded the per-file soft timeout.",
		},
	)
)
