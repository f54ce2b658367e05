package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the tracker
	Registry = prometheus.NewRegistry()

	// CoverageChecks counts coverage lookups by outcome: covered, uncovered, error
	CoverageChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "coverage_checks_total", Help: "Coverage checks by outcome."},
		[]string{"outcome"},
	)
	// RouteUpdates counts most-frequent-route writes: changed, unchanged, conflict
	RouteUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dealer_route_updates_total", Help: "Most frequent route updates by outcome."},
		[]string{"outcome"},
	)
	HistoryAppends = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dealer_history_appends_total", Help: "Location pings appended to dealer history."},
	)
	AnomaliesFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "order_status_anomalies_total", Help: "Orders flagged for rapid status change."},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(CoverageChecks)
		Registry.MustRegister(RouteUpdates)
		Registry.MustRegister(HistoryAppends)
		Registry.MustRegister(AnomaliesFlagged)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
