// Package metrics exposes prometheus collectors for imports and the query API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dofusdb"

// Import metrics
var (
	UpstreamPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_pages_fetched_total",
			Help:      "Pages fetched from the upstream API",
		},
		[]string{LabelCollection},
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Upstream requests retried after a failure",
		},
	)

	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows upserted into the store",
		},
		[]string{LabelRelation},
	)

	BatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed_total",
			Help:      "Write batches rejected by the store",
		},
		[]string{LabelRelation},
	)

	ImportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Finished import runs by mode and final status",
		},
		[]string{LabelMode, LabelStatus},
	)

	RecipesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_skipped_total",
			Help:      "Recipes dropped during normalization",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Labels
const (
	LabelCollection = "collection"
	LabelRelation   = "relation"
	LabelMode       = "mode"
	LabelMethod     = "method"
	LabelPath       = "path"
	LabelStatus     = "status"
)
