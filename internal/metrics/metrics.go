// Package metrics provides Prometheus metrics for uptimeguard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uptimeguard"

// Probe metrics
var (
	// ChecksTotal counts probe runs by monitor type and status.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "checks_total",
			Help:      "Total probe runs",
		},
		[]string{"type", "status"},
	)

	// CheckLatency tracks outbound probe latency.
	CheckLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "latency_seconds",
			Help:      "Probe latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	// DatapointsDropped counts datapoints lost to a full buffer.
	DatapointsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "datapoints_dropped_total",
			Help:      "Datapoints dropped because the buffer was full",
		},
	)
)

// Incident metrics
var (
	// IncidentTransitions counts opened and resolved incidents.
	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incident",
			Name:      "transitions_total",
			Help:      "Incident open and resolve decisions",
		},
		[]string{"transition"},
	)

	// BoundaryDegraded counts runs that fell back to local state updates.
	BoundaryDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incident",
			Name:      "boundary_degraded_total",
			Help:      "Runs processed without the consistency boundary",
		},
	)
)

// Alert metrics
var (
	// AlertsTotal counts dispatcher decisions by outcome.
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dispatch_total",
			Help:      "Alert dispatch decisions",
		},
		[]string{"direction", "outcome"},
	)

	// AlertDeliveries counts notifier sends by result.
	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "deliveries_total",
			Help:      "Alert deliveries by result",
		},
		[]string{"result"},
	)

	// AlertQueueDepth is the number of queued alert jobs.
	AlertQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "queue_depth",
			Help:      "Alert jobs waiting for delivery",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
