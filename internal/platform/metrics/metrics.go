package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// OperationDuration records timed operations (obs.Time) by name and status.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "rebalance_operation_duration_seconds", Help: "Duration of timed operations.", Buckets: prometheus.DefBuckets},
		[]string{"op", "status"},
	)
	// SolveDuration records solver runs by algorithm and outcome.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "rebalance_solve_duration_seconds", Help: "Route solver duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"algorithm", "status"},
	)
	// RoutesPlanned counts solver outcomes.
	RoutesPlanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rebalance_routes_total", Help: "Routes produced by the solver."},
		[]string{"algorithm", "status"},
	)
	// UnresolvedImbalance is the imbalance left by the last route per algorithm.
	UnresolvedImbalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "rebalance_unresolved_bikes", Help: "Bikes of imbalance left unresolved by the last route."},
		[]string{"algorithm"},
	)
	// DistanceLookups counts oracle cache hits and misses.
	DistanceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rebalance_distance_lookups_total", Help: "Distance oracle lookups by result."},
		[]string{"result"},
	)
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(OperationDuration, SolveDuration, RoutesPlanned, UnresolvedImbalance, DistanceLookups)
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
