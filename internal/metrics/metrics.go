package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route template, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// RouteBuilds counts completed builds by profile and outcome
	RouteBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_builds_total", Help: "Completed route builds by profile and outcome."},
		[]string{"profile", "outcome"},
	)
	// RouteBuildFailures counts builds that ended in the failed state
	RouteBuildFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_build_failures_total", Help: "Route builds that failed."},
		[]string{"reason"},
	)
	// PointsRejected counts points dropped during reconciliation
	PointsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_points_rejected_total", Help: "Points dropped during reconciliation."},
		[]string{"reason"},
	)
	// ProviderRequests counts routing provider calls by result
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routing_provider_requests_total", Help: "Routing provider requests by result."},
		[]string{"result"},
	)
	// ProviderDuration tracks routing provider latency in seconds
	ProviderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "routing_provider_duration_seconds", Help: "Routing provider latency in seconds.", Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10}},
	)
	// CacheLookups counts geometry cache lookups by result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_cache_lookups_total", Help: "Route geometry cache lookups."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RouteBuilds)
		Registry.MustRegister(RouteBuildFailures)
		Registry.MustRegister(PointsRejected)
		Registry.MustRegister(ProviderRequests)
		Registry.MustRegister(ProviderDuration)
		Registry.MustRegister(CacheLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
