// Package metrics exposes Prometheus collectors for the dialogue and its sinks.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/leadbot/internal/lead"
	"github.com/m3rciful/leadbot/internal/sink"
	"github.com/m3rciful/leadbot/internal/wizard"
)

const namespace = "leadbot"

// Metrics groups the bot collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	appends     *prometheus.CounterVec
	appendTime  *prometheus.HistogramVec
	sessions    prometheus.GaugeFunc
}

// New registers all collectors. activeSessions may be nil.
func New(activeSessions func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Dialogue transitions by source state, target state and prompt kind.",
		}, []string{"from", "to", "kind"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Completed submissions by role and outcome.",
		}, []string{"role", "status"}),
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_appends_total",
			Help:      "Sink append attempts by sink and outcome.",
		}, []string{"sink", "status"}),
		appendTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_append_duration_seconds",
			Help:      "Sink append latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"sink"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions, m.submissions, m.appends, m.appendTime,
	)
	if activeSessions != nil {
		m.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wizard_active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) })
		m.reg.MustRegister(m.sessions)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Transition implements wizard.Observer.
func (m *Metrics) Transition(from, to wizard.State, kind wizard.PromptKind) {
	m.transitions.WithLabelValues(string(from), string(to), kindLabel(kind)).Inc()
}

// Submitted implements wizard.Observer.
func (m *Metrics) Submitted(role lead.Role, err error) {
	m.submissions.WithLabelValues(role.Key(), status(err)).Inc()
}

// ObserveAppend implements sink.AppendObserver.
func (m *Metrics) ObserveAppend(name string, took time.Duration, err error) {
	m.appends.WithLabelValues(name, status(err)).Inc()
	m.appendTime.WithLabelValues(name).Observe(took.Seconds())
}

var (
	_ wizard.Observer     = (*Metrics)(nil)
	_ sink.AppendObserver = (*Metrics)(nil)
)

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sink.ErrNotConfigured):
		return "unconfigured"
	default:
		return "error"
	}
}

func kindLabel(k wizard.PromptKind) string {
	switch k {
	case wizard.PromptAsk:
		return "ask"
	case wizard.PromptRetry:
		return "retry"
	case wizard.PromptCompleted:
		return "completed"
	case wizard.PromptSinkFailure:
		return "sink_failure"
	case wizard.PromptCancelled:
		return "cancelled"
	}
	return "none"
}
