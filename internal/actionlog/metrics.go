package actionlog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks appender and instrumentation activity. It registers on an
// explicit registry so independent logger instances stay isolated in tests.
// A nil *Metrics is valid and counts nothing.
type Metrics struct {
	appends     *prometheus.CounterVec
	rotations   prometheus.Counter
	invocations *prometheus.CounterVec
}

// NewMetrics creates and registers the action log metrics on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionlog",
			Name:      "appends_total",
			Help:      "Record append attempts by outcome (written or dropped).",
		}, []string{"outcome"}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actionlog",
			Name:      "rotations_total",
			Help:      "Completed rotations of the active log file.",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionlog",
			Name:      "invocations_total",
			Help:      "Instrumented invocations by tool and status.",
		}, []string{"tool", "status"}),
	}
	reg.MustRegister(m.appends, m.rotations, m.invocations)
	return m
}

func (m *Metrics) appendWritten() {
	if m != nil {
		m.appends.WithLabelValues("written").Inc()
	}
}

func (m *Metrics) appendDropped() {
	if m != nil {
		m.appends.WithLabelValues("dropped").Inc()
	}
}

func (m *Metrics) rotated() {
	if m != nil {
		m.rotations.Inc()
	}
}

func (m *Metrics) invocation(tool, status string) {
	if m != nil {
		m.invocations.WithLabelValues(tool, status).Inc()
	}
}
