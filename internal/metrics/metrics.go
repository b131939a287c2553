// Package metrics provides Prometheus metrics for the alert actions
// service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alertops"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Action metrics
var (
	// ActionsTotal counts completed per-alert actions.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "total",
			Help:      "Total completed per-alert actions",
		},
		[]string{"alert_id", "event_name", "user_name"},
	)

	// ActionBatchesTotal counts action batches by kind.
	ActionBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "batches_total",
			Help:      "Total action batches processed",
		},
		[]string{"event_name"},
	)

	// ActionSkipsTotal counts alert ids skipped inside batches.
	ActionSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "skips_total",
			Help:      "Total alert ids skipped because no notification record exists",
		},
		[]string{"event_name"},
	)
)

// Bridge metrics
var (
	// BridgeCallsTotal counts cache invalidation calls by endpoint and outcome.
	BridgeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Total cache invalidation calls",
		},
		[]string{"endpoint", "outcome"},
	)
)

// ActionSink feeds orchestrator observations into the action counters.
// It is the concrete handle passed to the pipeline instead of letting
// it reach for package globals.
type ActionSink struct{}

// ObserveAction records one completed per-alert action.
func (ActionSink) ObserveAction(alertID int64, action, actor string) {
	ActionsTotal.WithLabelValues(strconv.FormatInt(alertID, 10), action, actor).Inc()
}
