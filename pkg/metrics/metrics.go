// Package metrics provides the centralized Prometheus metrics registry for
// the Motion client. All metrics are defined in their respective packages
// (client, pagination, cache, ratelimit) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Motion client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - motion_requests_remaining (Gauge): Requests remaining in the current window
//   - motion_rate_limit_blocks_total (Counter): Requests blocked on exhausted budget
//   - motion_rate_limit_throttles_total (Counter): Requests throttled on low budget
//
// Cache Metrics (pkg/cache):
//   - motion_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - motion_cache_misses_total (Counter): Cache misses
//   - motion_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - motion_conditional_requests_total (Counter): Conditional requests sent
//   - motion_304_responses_total (Counter): 304 Not Modified responses
//   - motion_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - motion_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - motion_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - motion_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - motion_retries_total{error_class} (Counter): Retry attempts by error class
//   - motion_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - motion_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Pagination Metrics (pkg/pagination):
//   - motion_pages_fetched_total{resource} (Counter): Pages fetched by resource
//   - motion_collect_truncated_total{resource, reason} (Counter): Collections stopped by a cap
//   - motion_stuck_cursors_total{resource} (Counter): Collections stopped by the stuck-cursor guard
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(motion_cache_hits_total[5m])) /
//   (sum(rate(motion_cache_hits_total[5m])) + sum(rate(motion_cache_misses_total[5m])))
//
//   # Budget Status
//   motion_requests_remaining < 3
//
//   # Request Error Rate
//   rate(motion_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(motion_request_duration_seconds_bucket[5m]))
//
//   # Truncation Rate by Resource
//   rate(motion_collect_truncated_total[15m])
