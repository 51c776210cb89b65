package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the agent server.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec
	TurnsTotal     *prometheus.CounterVec
	LeadsTotal     prometheus.Counter
	GatewayErrors  *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with everything registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "leadbot"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of connected sessions",
	})

	sessionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Total sessions by terminal status",
	}, []string{"status"})

	turnsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Processed turns by outcome",
	}, []string{"outcome"})

	leadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_total",
		Help:      "Leads captured",
	})

	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_errors_total",
		Help:      "External gateway failures by gateway",
	}, []string{"gateway"})

	registry.MustRegister(sessionsActive, sessionsTotal, turnsTotal, leadsTotal, gatewayErrors)

	return &Metrics{
		registry:       registry,
		SessionsActive: sessionsActive,
		SessionsTotal:  sessionsTotal,
		TurnsTotal:     turnsTotal,
		LeadsTotal:     leadsTotal,
		GatewayErrors:  gatewayErrors,
	}
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart marks a session as connected.
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// RecordSessionEnd marks a session as finished with the given status.
func (m *Metrics) RecordSessionEnd(status string) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(status).Inc()
}

// RecordTurn counts one processed turn by outcome.
func (m *Metrics) RecordTurn(outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordLead counts one captured lead.
func (m *Metrics) RecordLead() {
	if m == nil {
		return
	}
	m.LeadsTotal.Inc()
}

// RecordGatewayError counts one external gateway failure.
func (m *Metrics) RecordGatewayError(gateway string) {
	if m == nil {
		return
	}
	m.GatewayErrors.WithLabelValues(gateway).Inc()
}
