// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the proxy:
// - Upstream fetch latency, outcomes, and challenge-page detections
// - Tiered cache results by tier (hit/miss/stale/fail)
// - Fan-out aggregation branch outcomes and merged record counts
// - Image pipeline serving tiers
// - Circuit breaker state
// - API endpoint latency and throughput

var (
	// Upstream Fetch Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream HTTP requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 15},
		},
		[]string{"resource"}, // "manifest", "list", "metadata", "image"
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream requests by outcome",
		},
		[]string{"resource", "outcome"}, // outcome: "ok", "timeout", "network", "challenge", "status", "ssrf", "redirect"
	)

	ChallengePagesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_challenge_pages_total",
			Help: "Total number of bot-challenge pages detected on HTTP 200 responses",
		},
	)

	RedirectHops = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_redirect_hops",
			Help:    "Number of redirects followed per image fetch",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// Tiered Cache Metrics
	TieredCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiered_cache_results_total",
			Help: "Tiered cache lookups by result tier",
		},
		[]string{"cache", "tier"}, // tier: "fresh", "refreshed", "stale", "failed"
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of entries per cache",
		},
		[]string{"cache"},
	)

	// Fan-out Aggregation Metrics
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camnames_aggregation_duration_seconds",
			Help:    "Duration of camera-name fan-out aggregation cycles",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	AggregationBranches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camnames_branches_total",
			Help: "Fan-out branch outcomes per aggregation cycle",
		},
		[]string{"outcome"}, // "merged", "empty", "failed", "unrecognized"
	)

	AggregationRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camnames_merged_records",
			Help: "Number of records in the most recent merged camera-name map",
		},
	)

	// Image Pipeline Metrics
	SnapshotsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_served_total",
			Help: "Snapshot responses by serving tier",
		},
		[]string{"tier"}, // "hit", "miss", "stale", "placeholder"
	)

	ResolverResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_results_total",
			Help: "Dynamic URL resolution outcomes",
		},
		[]string{"outcome"}, // "hit", "resolved", "failed"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records a completed upstream fetch.
func RecordUpstreamRequest(resource, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(resource, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordTieredResult records a tiered cache lookup result.
func RecordTieredResult(cache, tier string) {
	TieredCacheResults.WithLabelValues(cache, tier).Inc()
}

// RecordSnapshotTier records which tier served a snapshot response.
func RecordSnapshotTier(tier string) {
	SnapshotsServed.WithLabelValues(tier).Inc()
}

// FormatStatusCode converts an HTTP status code to its label string.
func FormatStatusCode(code int) string {
	return strconv.Itoa(code)
}
