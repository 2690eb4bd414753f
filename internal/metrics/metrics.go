// Package metrics exposes prometheus instrumentation for list operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultNoop  = "noop"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	items      prometheus.Gauge
	sessions   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todos",
			Name:      "operations_total",
			Help:      "List controller operations by name and result.",
		}, []string{"op", "result"}),
		items: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "todos",
			Name:      "rendered_items",
			Help:      "Items in the most recently written cache snapshot.",
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "todos",
			Name:      "sessions",
			Help:      "Open UI sessions.",
		}),
	}
}

// Observe counts one operation outcome.
func (m *Metrics) Observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// SetItems records the size of the latest snapshot.
func (m *Metrics) SetItems(n int) {
	if m == nil {
		return
	}
	m.items.Set(float64(n))
}

// SetSessions records the number of open sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Operations returns the operation counter, for tests and dashboards.
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
