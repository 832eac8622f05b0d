package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// FetchesTotal tracks upstream price fetches by category and outcome
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_fetches_total",
			Help: "Total upstream price fetches",
		},
		[]string{"category", "status"}, // status: success, empty, error
	)

	// FetchDuration measures upstream fetch duration in seconds
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricebatch_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"category"},
	)

	// RecordsTotal tracks ingested records by disposition
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_records_total",
			Help: "Daily price records by disposition",
		},
		[]string{"disposition"}, // inserted, duplicate, unresolved, unpriced, skipped
	)

	// ChunkCommitsTotal counts chunk commits by outcome
	ChunkCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_chunk_commits_total",
			Help: "Chunked write commits",
		},
		[]string{"step", "status"}, // status: success, retried, failed
	)

	// RollupRowsTotal counts rollup rows written per period type
	RollupRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_rollup_rows_total",
			Help: "Rollup rows upserted",
		},
		[]string{"period"}, // weekly, monthly, yearly
	)

	// JobsTotal tracks orchestrated jobs by type and outcome
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_jobs_total",
			Help: "Orchestrated jobs",
		},
		[]string{"job", "status"}, // status: success, failed, locked, invalid
	)

	// JobDuration measures end-to-end job duration in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricebatch_job_duration_seconds",
			Help:    "End-to-end job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		},
		[]string{"job"},
	)

	// PartitionsTotal tracks date partitions processed per job run
	PartitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebatch_partitions_total",
			Help: "Date partitions processed",
		},
		[]string{"status"}, // success, failed
	)
)
