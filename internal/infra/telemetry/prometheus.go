package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the console's Prometheus instrumentation. All methods are
// nil-receiver safe so wiring without metrics stays quiet.
type Metrics struct {
	pollTotal         *prometheus.CounterVec
	pollDuration      *prometheus.HistogramVec
	recentFailures    prometheus.Gauge
	degraded          prometheus.Gauge
	toolExecutions    *prometheus.CounterVec
	contractLoads     *prometheus.CounterVec
	approvalDecisions *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		pollTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsd_poll_total",
				Help: "Total telemetry polls by source and outcome",
			},
			[]string{"source", "status"},
		),
		pollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opsd_poll_duration_seconds",
				Help:    "Duration of telemetry polls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		recentFailures: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "opsd_recent_run_failures",
				Help: "Failed flow runs inside the rolling window",
			},
		),
		degraded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "opsd_degraded",
				Help: "1 when any telemetry source is unhealthy",
			},
		),
		toolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsd_tool_executions_total",
				Help: "Total tool executions by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		contractLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsd_contract_loads_total",
				Help: "Total tool contract load attempts by outcome",
			},
			[]string{"outcome"},
		),
		approvalDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsd_approval_decisions_total",
				Help: "Total human-in-the-loop decisions by action",
			},
			[]string{"action"},
		),
	}
}

func (m *Metrics) ObservePoll(source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pollTotal.WithLabelValues(source, status).Inc()
	m.pollDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *Metrics) SetRecentFailures(count int) {
	if m == nil {
		return
	}
	m.recentFailures.Set(float64(count))
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}

func (m *Metrics) RecordToolExecution(tool, status string) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) RecordContractLoad(outcome string) {
	if m == nil {
		return
	}
	m.contractLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordApprovalDecision(action string) {
	if m == nil {
		return
	}
	m.approvalDecisions.WithLabelValues(action).Inc()
}
