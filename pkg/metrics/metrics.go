// Package metrics holds the Prometheus instruments for catalog ingestion,
// platform scans and library writes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogSyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_catalog_sync_runs_total",
			Help: "Catalog sync runs by outcome",
		},
		[]string{"outcome"}, // "completed", "partial", "skipped", "failed"
	)

	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ludotheque_catalog_sync_duration_seconds",
			Help:    "Duration of catalog sync runs that fetched at least one page",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	CatalogSyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ludotheque_catalog_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last catalog sync that advanced the watermark",
		},
	)

	CatalogRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_catalog_records_total",
			Help: "Catalog records handled by the upsert engine",
		},
		[]string{"result"}, // "created", "updated", "invalid"
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_upstream_requests_total",
			Help: "Requests to third-party APIs",
		},
		[]string{"service", "outcome"}, // "success", "failure", "rejected"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ludotheque_upstream_request_duration_seconds",
			Help:    "Latency of third-party API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ludotheque_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service"},
	)

	SourceScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_source_scans_total",
			Help: "Platform library scans by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ScanCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_scan_candidates_total",
			Help: "Scanned candidates by reconciliation state",
		},
		[]string{"source", "state"},
	)

	LibraryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ludotheque_library_writes_total",
			Help: "Confirmed library writes by action",
		},
		[]string{"action"}, // create, update, delete, ignore, restore
	)
)
