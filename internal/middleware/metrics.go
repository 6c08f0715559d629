package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts gate outcomes and policy decisions.
type Metrics struct {
	GateTotal   *prometheus.CounterVec
	PolicyTotal *prometheus.CounterVec
}

// NewMetrics creates the auth counters and registers them on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		GateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readerapi_auth_gate_total",
				Help: "Authentication gate outcomes by terminal state",
			},
			[]string{"outcome"},
		),
		PolicyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readerapi_auth_policy_total",
				Help: "Access policy decisions",
			},
			[]string{"decision"},
		),
	}

	if registry != nil {
		registry.MustRegister(m.GateTotal, m.PolicyTotal)
	}
	return m
}

func (m *Metrics) observeGate(outcome Outcome) {
	if m == nil {
		return
	}
	m.GateTotal.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeDecision(decision string) {
	if m == nil {
		return
	}
	m.PolicyTotal.WithLabelValues(decision).Inc()
}
