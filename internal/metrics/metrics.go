// Package metrics holds the Prometheus collectors shared by the consumer
// and producer: reply counts by status, RPC latency, and a health gauge
// mirroring the last health snapshot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors registered by a consumer or producer
// instance. Register once per process; the consumer, the producer and the
// health handler take a *Metrics as an optional dependency.
type Metrics struct {
	RepliesTotal   *prometheus.CounterVec
	HandlerSeconds *prometheus.HistogramVec
	RPCSeconds     prometheus.Histogram
	HealthStatus   *prometheus.GaugeVec
}

// New registers a fresh set of collectors against the default registry.
// Call once per process; registering twice panics, matching
// promauto's behavior.
func New() *Metrics {
	return &Metrics{
		RepliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "busrpc_replies_total",
			Help: "Total number of RPC replies emitted by the consumer, by status.",
		}, []string{"status"}),
		HandlerSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "busrpc_handler_duration_seconds",
			Help: "Handler execution time, by resource and action.",
		}, []string{"resource", "action"}),
		RPCSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "busrpc_rpc_duration_seconds",
			Help: "Producer-observed round-trip time for AwaitResponse.",
		}),
		HealthStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busrpc_health_status",
			Help: "Last health snapshot, 1 for the active status per component (health, db).",
		}, []string{"component", "status"}),
	}
}

// ObserveHandler records handler execution time for a (resource, action)
// pair.
func (m *Metrics) ObserveHandler(resource, action string, seconds float64) {
	if m == nil {
		return
	}
	m.HandlerSeconds.WithLabelValues(resource, action).Observe(seconds)
}

// IncReply increments the reply counter for a status ("ok" or "error").
func (m *Metrics) IncReply(status string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(status).Inc()
}

// ObserveRPC records a producer-side round-trip time.
func (m *Metrics) ObserveRPC(seconds float64) {
	if m == nil {
		return
	}
	m.RPCSeconds.Observe(seconds)
}

// SetHealth sets the gauge for the given component/status pair to 1 and
// drops that component's other status series, so each component carries
// exactly one series: the status of the last snapshot.
func (m *Metrics) SetHealth(component, status string) {
	if m == nil {
		return
	}
	m.HealthStatus.DeletePartialMatch(prometheus.Labels{"component": component})
	m.HealthStatus.WithLabelValues(component, status).Set(1)
}
