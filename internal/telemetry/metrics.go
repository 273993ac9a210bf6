// Package telemetry exposes operational metrics for the risk manager. The
// metrics are observational only; nothing in the decision path reads them.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics is the Prometheus registry for the process.
type Metrics struct {
	registry *prometheus.Registry

	RiskChecks   *prometheus.CounterVec
	CheckErrors  prometheus.Counter
	Fills        prometheus.Counter
	StreamErrors prometheus.Counter

	Equity      prometheus.Gauge
	BuyingPower prometheus.Gauge
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RiskChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_manager_checks_total",
				Help: "Risk checks by result and deny reason",
			},
			[]string{"result", "reason"},
		),
		CheckErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "risk_manager_check_errors_total",
				Help: "Risk checks that failed with an input or dependency error",
			},
		),
		Fills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "risk_manager_fills_total",
				Help: "Fill events applied to the portfolio",
			},
		),
		StreamErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "risk_manager_stream_errors_total",
				Help: "Malformed or undecodable events received from the stream",
			},
		),
		Equity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "risk_manager_equity",
				Help: "Current account equity",
			},
		),
		BuyingPower: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "risk_manager_buying_power",
				Help: "Current buying power",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RiskChecks,
		m.CheckErrors,
		m.Fills,
		m.StreamErrors,
		m.Equity,
		m.BuyingPower,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts one completed risk check.
func (m *Metrics) RecordDecision(result, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.RiskChecks.WithLabelValues(result, reason).Inc()
}
