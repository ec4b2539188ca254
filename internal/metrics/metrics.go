// Package metrics exposes collection counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "likestogo"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	commands        *prometheus.CounterVec
	batches         prometheus.Counter
	records         prometheus.Gauge
	invalidMessages prometheus.Counter
	requests        *prometheus.CounterVec
	pacingDelay     prometheus.Histogram
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State machine transitions by source and target state",
		}, []string{"from", "to"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Executed commands by kind and outcome",
		}, []string{"kind", "result"}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_received_total",
			Help:      "Track batches received from the scraping side",
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_accumulated",
			Help:      "Distinct tracks held by the current run",
		}),
		invalidMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_messages_total",
			Help:      "Inbound messages rejected by validation",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Control API requests by route and status code",
		}, []string{"route", "code"}),
		pacingDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_delay_ms",
			Help:      "Wait before each scroll in milliseconds",
			Buckets:   []float64{2000, 2500, 3000, 3500, 4000, 4500, 5000, 10000, 30000, 60000},
		}),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// ObserveCommand counts a command; result is "ok" or "error"
func (m *Metrics) ObserveCommand(kind, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
}

func (m *Metrics) ObserveInvalidMessage() {
	if m == nil {
		return
	}
	m.invalidMessages.Inc()
}

func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) ObservePacingDelay(ms int64) {
	if m == nil {
		return
	}
	m.pacingDelay.Observe(float64(ms))
}
