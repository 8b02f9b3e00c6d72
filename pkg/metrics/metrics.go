// Package metrics exposes the Prometheus registry shared by cin7-sync.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pipeline) and registered via promauto; this package serves
// them and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Usage tracker (pkg/ratelimit):
//   - cin7_rate_limit_admitted_total{account} (Counter): Calls admitted
//   - cin7_rate_limit_blocks_total{account, window} (Counter): Suspensions on an exhausted window
//   - cin7_rate_limit_window_usage{account, window} (Gauge): Calls in the current window
//
// Page cache (pkg/cache):
//   - cin7_cache_hits_total{resource} (Counter): Pages served from Redis
//   - cin7_cache_misses_total{resource} (Counter): Page lookups not in Redis
//   - cin7_cache_bytes_written_total{resource} (Counter): Bytes stored in Redis
//   - cin7_cache_errors_total{operation} (Counter): Redis failures by operation
//
// API client (pkg/client):
//   - cin7_requests_total{resource, status} (Counter): Requests by resource and HTTP status
//   - cin7_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - cin7_errors_total{class} (Counter): Transport errors by class (client, server, rate_limit, network, decode)
//
// Pipelines (pkg/pipeline):
//   - cin7_pipeline_pages_total{account} (Counter): Non-empty pages processed
//   - cin7_pipeline_rows_total{account} (Counter): Rows produced
//   - cin7_processing_errors_total{account} (Counter): Records that failed expansion
//   - cin7_pipeline_runs_total{status} (Counter): Finished pipelines by status
//   - cin7_pipeline_duration_seconds (Histogram): Wall time per account
//
// Example Prometheus Queries:
//
//   # Accounts failing
//   increase(cin7_pipeline_runs_total{status="failed"}[1d])
//
//   # Minute window headroom
//   60 - max by (account) (cin7_rate_limit_window_usage{window="minute"})
//
//   # Cache Hit Rate
//   sum(rate(cin7_cache_hits_total[5m])) /
//   (sum(rate(cin7_cache_hits_total[5m])) + sum(rate(cin7_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(cin7_request_duration_seconds_bucket[5m]))
