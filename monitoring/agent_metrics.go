package monitoring

import (
	"errors"
	"time"

	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK                = "ok"
	resultError             = "error"
	resultInsufficientFunds = "insufficient_funds"
)

// AgentMetrics holds the metrics shared by all agents, labelled by agent
// name.
type AgentMetrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	opens         *prometheus.CounterVec
	pending       *prometheus.GaugeVec
}

// NewAgentMetrics creates the agent metrics and registers them with reg.
func NewAgentMetrics(reg prometheus.Registerer) (*AgentMetrics, error) {
	m := &AgentMetrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "cycles_total",
				Help:      "Number of agent cycles by result.",
			},
			[]string{"agent", "result"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of agent cycles.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		opens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "channel_opens_total",
				Help:      "Number of channel opening attempts by result.",
			},
			[]string{"agent", "result"},
		),
		pending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "pending_opens",
				Help:      "Number of channel openings in flight.",
			},
			[]string{"agent"},
		),
	}

	err := registerAll(
		reg, m.cycles, m.cycleDuration, m.opens, m.pending,
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ForAgent returns the observer recording the metrics of the named agent.
func (m *AgentMetrics) ForAgent(name string) autopilot.Observer {
	return &agentObserver{
		metrics: m,
		agent:   name,
	}
}

// agentObserver implements autopilot.Observer for a single agent.
type agentObserver struct {
	metrics *AgentMetrics
	agent   string
}

// A compile-time check to ensure agentObserver implements autopilot.Observer.
var _ autopilot.Observer = (*agentObserver)(nil)

// ObserveCycle records the outcome and duration of a cycle.
func (o *agentObserver) ObserveCycle(elapsed time.Duration, err error) {
	result := resultOK
	switch {
	case errors.Is(err, autopilot.ErrInsufficientFunds):
		result = resultInsufficientFunds

	case err != nil:
		result = resultError
	}

	o.metrics.cycles.WithLabelValues(o.agent, result).Inc()
	o.metrics.cycleDuration.WithLabelValues(o.agent).Observe(
		elapsed.Seconds(),
	)
}

// ObserveOpen records the outcome of a channel opening.
func (o *agentObserver) ObserveOpen(err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}

	o.metrics.opens.WithLabelValues(o.agent, result).Inc()
}

// ObservePending records the number of openings in flight.
func (o *agentObserver) ObservePending(n int) {
	o.metrics.pending.WithLabelValues(o.agent).Set(float64(n))
}
