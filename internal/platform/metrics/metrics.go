// Package metrics holds the process Prometheus collectors
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Documents counts archive members and fetched notices by outcome
	// (seen, eligible, written, skipped, failed)
	Documents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_documents_total",
			Help: "Notice documents processed by outcome",
		},
		[]string{"outcome"},
	)

	// Skips counts documents dropped before persistence by reason
	Skips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_documents_skipped_total",
			Help: "Notice documents dropped before persistence by reason",
		},
		[]string{"reason"},
	)

	// RecordsWritten counts rows upserted per table
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_records_written_total",
			Help: "Rows upserted by destination table",
		},
		[]string{"table"},
	)

	// UpstreamRequests counts requests to the TED site by operation and status
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_http_requests_total",
			Help: "Requests to the publication site by operation and status",
		},
		[]string{"op", "status"},
	)

	// RunDuration observes whole ingestion runs
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ted_run_duration_seconds",
			Help:    "Ingestion run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
		[]string{"mode", "status"},
	)

	// LastRun records the unix time of the last finished run per status
	LastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ted_last_run_timestamp_seconds",
			Help: "Unix time of the last finished ingestion run",
		},
		[]string{"status"},
	)

	// APIRequests counts read API requests
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_api_requests_total",
			Help: "Read API requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration observes read API latency
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ted_api_request_duration_seconds",
			Help:    "Read API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// APISlowRequests counts read API requests at or over the slow threshold
	APISlowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_api_slow_requests_total",
			Help: "Read API requests at or over the slow threshold",
		},
		[]string{"method", "route"},
	)

	// APIPanics counts handler panics recovered into a 500
	APIPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ted_api_panics_total",
			Help: "Read API handler panics by route",
		},
		[]string{"route"},
	)
)

// Upstream records one request to the publication site; status 0 means transport error
func Upstream(op string, status int) {
	UpstreamRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// ObserveRun records a finished run
func ObserveRun(mode, status string, took time.Duration) {
	RunDuration.WithLabelValues(mode, status).Observe(took.Seconds())
	LastRun.WithLabelValues(status).SetToCurrentTime()
}

// Handler serves the default registry
func Handler() http.Handler { return promhttp.Handler() }

// WriteTextfile dumps the default registry in text format for a
// node_exporter textfile collector. Empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
