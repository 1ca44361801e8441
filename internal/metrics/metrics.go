// Package metrics exposes service counters in the prometheus text format.
package metrics

import (
	"net/http"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/realtime"
	"giftcircle/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giftcircle"

type Metrics struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	subscriptions prometheus.Gauge
	events        *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Domain operations by outcome.",
		}, []string{"operation", "outcome"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscriptions",
			Help:      "Open change subscriptions.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Change events delivered to subscribers.",
		}, []string{"table", "op"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.subscriptions,
		m.events,
	)
	return m
}

// Observe counts one finished operation. The outcome is "ok" or the error
// kind.
func (m *Metrics) Observe(operation string, err error) {
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return domainerr.KindOf(err).String()
}

func (m *Metrics) SubscriptionOpened(realtime.Scope) {
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed(realtime.Scope) {
	m.subscriptions.Dec()
}

func (m *Metrics) EventDelivered(table string, op store.Op) {
	m.events.WithLabelValues(table, string(op)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
