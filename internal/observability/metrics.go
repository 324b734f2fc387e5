package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation during upstream slowness.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream page fetch rate by outcome. Watch for: error vs success ratio.
	UpstreamFetchesTotal *prometheus.CounterVec

	// Upstream page latency. Watch for: p95 > 2s (upstream degradation), p99 near the fetch timeout.
	UpstreamFetchDuration *prometheus.HistogramVec

	// Fetched pages the parser rejected. Watch for: spikes = upstream markup changed.
	ParseFailuresTotal *prometheus.CounterVec

	// Fresh cache hits by mode. Hit rate = hits/(hits+fetches).
	CacheHitsTotal *prometheus.CounterVec

	// Responses served from cache past TTL after a failed fetch or parse.
	StaleServesTotal *prometheus.CounterVec

	// Age of stale payloads at serve time. Watch for: growth = upstream down for a while.
	StaleAgeSeconds prometheus.Histogram

	// Total weather lookups by mode. rate() for QPS.
	WeatherRequestsTotal *prometheus.CounterVec

	// Upstream fetches avoided by coalescing concurrent requests for one key.
	CoalescedFetchesTotal prometheus.Counter

	// Circuit breaker state transitions for the upstream fetch path.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamFetchesTotal",
			Help: "Total number of upstream page fetches",
		},
		[]string{"status"},
	)
	UpstreamFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamFetchDurationSeconds",
			Help:    "Upstream page fetch latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	ParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parseFailuresTotal",
			Help: "Fetched pages whose structural anchors could not be extracted",
		},
		[]string{"mode"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Responses served from a fresh cache entry without an upstream fetch",
		},
		[]string{"mode"},
	)
	StaleServesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staleServesTotal",
			Help: "Responses served from an expired cache entry after a fetch or parse failure",
		},
		[]string{"mode"},
	)
	StaleAgeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "staleAgeSeconds",
			Help:    "Age of cache entries at stale-serve time",
			Buckets: []float64{900, 1800, 3600, 7200, 14400, 43200, 86400},
		},
	)
	WeatherRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherRequestsTotal",
			Help: "Total number of weather lookups",
		},
		[]string{"mode"},
	)
	CoalescedFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coalescedFetchesTotal",
			Help: "Requests that waited on another request's upstream fetch for the same key",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions on the upstream fetch path",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamFetchesTotal, UpstreamFetchDuration, ParseFailuresTotal,
		CacheHitsTotal, StaleServesTotal, StaleAgeSeconds,
		WeatherRequestsTotal, CoalescedFetchesTotal, CircuitBreakerTransitionsTotal,
	)
}

// RecordUpstreamFetch records one upstream fetch outcome with its latency.
func RecordUpstreamFetch(status string, d time.Duration) {
	UpstreamFetchesTotal.WithLabelValues(status).Inc()
	UpstreamFetchDuration.WithLabelValues(status).Observe(d.Seconds())
}

// MetricsHandler returns the HTTP handler serving the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
