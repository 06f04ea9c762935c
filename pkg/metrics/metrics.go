// Package metrics provides the centralized Prometheus metrics registry
// for the streaming client. All metrics are defined in their respective
// packages (influxhttp, pagination, lookahead, cache) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the streaming client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Query Metrics (pkg/influxhttp):
//   - influxstream_http_requests_total{status} (Counter): Queries sent to the /query endpoint by HTTP status
//   - influxstream_http_request_duration_seconds (Histogram): End-to-end query duration including retries
//   - influxstream_http_errors_total{class} (Counter): Query errors by class (client, server, network)
//
// Retry Metrics (pkg/influxhttp):
//   - influxstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - influxstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - influxstream_retry_exhausted_total{error_class} (Counter): Queries that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - influxstream_pages_fetched_total{outcome} (Counter): Page queries by outcome (ok, empty, error)
//   - influxstream_page_fetch_duration_seconds (Histogram): Duration of single page queries
//   - influxstream_page_rows (Histogram): Rows returned per page query
//
// Prefetch Metrics (pkg/lookahead):
//   - influxstream_lookahead_wait_seconds (Histogram): Time the consumer spent blocked on the oldest task
//   - influxstream_lookahead_tasks_total{result} (Counter): Prefetch tasks by result (ok, eof, error, order_violation)
//
// Cache Metrics (pkg/cache):
//   - influxstream_series_cache_hits_total (Counter): Series lists served from Redis
//   - influxstream_series_cache_misses_total (Counter): Lookups that fell through to SHOW SERIES
//   - influxstream_series_cache_errors_total{operation} (Counter): Cache operation errors (get, set, invalidate)
//   - influxstream_series_cache_entry_bytes (Histogram): Encoded size of cached series lists
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(influxstream_series_cache_hits_total[5m])) /
//   (sum(rate(influxstream_series_cache_hits_total[5m])) + sum(rate(influxstream_series_cache_misses_total[5m])))
//
//   # Query Error Rate
//   rate(influxstream_http_errors_total[5m])
//
//   # P95 Page Fetch Latency
//   histogram_quantile(0.95, rate(influxstream_page_fetch_duration_seconds_bucket[5m]))
//
//   # Consumer Stall Time
//   rate(influxstream_lookahead_wait_seconds_sum[5m])
//
//   # Empty Page Ratio (end-of-stream probes vs. data pages)
//   rate(influxstream_pages_fetched_total{outcome="empty"}[5m]) /
//   rate(influxstream_pages_fetched_total[5m])
