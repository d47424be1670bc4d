// Package metrics holds the Prometheus collectors for generation and feedback.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etrimage"

// Call stages.
const (
	StageAnalysis = "analysis"
	StageFallback = "fallback"
	StageRender   = "render"
	StageFeedback = "feedback"
)

// Call outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusEmpty = "empty"
)

// Metrics groups the collectors registered on one registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	renders       *prometheus.CounterVec
	feedback      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, including the Go and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		modelCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Model invocations, partitioned by stage and outcome.",
			},
			[]string{"stage", "status"},
		),
		modelDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Model invocation latency by stage.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
			},
			[]string{"stage"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state transitions by target state.",
			},
			[]string{"state"},
		),
		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Images produced, partitioned by the strategy that produced them.",
			},
			[]string{"strategy"},
		),
		feedback: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_total",
				Help:      "Committed feedback records by rating.",
			},
			[]string{"rating"},
		),
	}
}

// ObserveCall records one model invocation.
func (m *Metrics) ObserveCall(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(stage, status).Inc()
	m.modelDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Transition counts a session entering state.
func (m *Metrics) Transition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

// Rendered counts an image produced by strategy.
func (m *Metrics) Rendered(strategy string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(strategy).Inc()
}

// FeedbackRecorded counts a committed rating.
func (m *Metrics) FeedbackRecorded(rating string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(rating).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
