// Package metrics exposes the Prometheus series named in
// SPEC_FULL.md §4.13. It is grounded directly on the
// prometheus/client_golang usage pattern in the reference pack's flow
// engine metrics (one struct of vectors/gauges, registered once at
// construction, observed from call sites that already have the
// relevant labels on hand).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphrules/engine/engine"
)

// Metrics holds every series the rule engine reports. A nil *Metrics
// is a legal "collection disabled" value; every method on it guards
// against a nil receiver so callers never need to branch on whether
// metrics are enabled.
type Metrics struct {
	firings          *prometheus.CounterVec
	cascadeDepth     prometheus.Histogram
	queueDepth       prometheus.Gauge
	actionExecutions *prometheus.CounterVec
	translateErrors  *prometheus.CounterVec
	evalErrors       *prometheus.CounterVec
}

// New creates and registers every series against reg. Passing a fresh
// prometheus.NewRegistry() per engine instance (rather than the global
// DefaultRegisterer) keeps tests free of cross-test registration
// collisions; production wiring may pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		firings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleengine",
			Name:      "firings_total",
			Help:      "Total rule firing attempts by outcome.",
		}, []string{"rule", "outcome"}),

		cascadeDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ruleengine",
			Name:      "cascade_depth",
			Help:      "Depth reached by a top-level event's cascade.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 25},
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ruleengine",
			Name:      "queue_depth",
			Help:      "Current size of the in-flight cascade queue.",
		}),

		actionExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleengine",
			Name:      "action_executions_total",
			Help:      "Total ACTION executions by entity type, action, and outcome.",
		}, []string{"entity_type", "action", "outcome"}),

		translateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleengine",
			Name:      "translate_errors_total",
			Help:      "Total pattern translation errors by kind.",
		}, []string{"kind"}),

		evalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ruleengine",
			Name:      "eval_errors_total",
			Help:      "Total expression evaluation errors by kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		m.firings, m.cascadeDepth, m.queueDepth, m.actionExecutions,
		m.translateErrors, m.evalErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the promhttp handler to mount on the metrics
// listener address (config.MetricsAddr).
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ engine.Observer = (*Metrics)(nil)

// RuleMatched implements engine.Observer.
func (m *Metrics) RuleMatched(rule string) {
	if m == nil {
		return
	}
	m.firings.WithLabelValues(rule, "matched").Inc()
}

// RuleFailed implements engine.Observer.
func (m *Metrics) RuleFailed(rule, entityType, entityID string, err error) {
	if m == nil {
		return
	}
	m.firings.WithLabelValues(rule, "failed").Inc()
}

// Overflow implements engine.Observer.
func (m *Metrics) Overflow(o *engine.CascadeOverflow) {
	if m == nil {
		return
	}
	m.firings.WithLabelValues("<cascade>", "overflow").Inc()
}

// ActionExecuted records one actionexec.ExecutionResult outcome.
func (m *Metrics) ActionExecuted(entityType, action, outcome string) {
	if m == nil {
		return
	}
	m.actionExecutions.WithLabelValues(entityType, action, outcome).Inc()
}

// TranslateError records one translate.Translate failure, bucketed by
// a short caller-supplied kind (e.g. "unsafe_label", "changed_in_guard").
func (m *Metrics) TranslateError(kind string) {
	if m == nil {
		return
	}
	m.translateErrors.WithLabelValues(kind).Inc()
}

// EvalError records one eval.Eval failure, bucketed by kind.
func (m *Metrics) EvalError(kind string) {
	if m == nil {
		return
	}
	m.evalErrors.WithLabelValues(kind).Inc()
}

// CascadeFinished implements engine.Observer: it records the final
// depth reached by a completed cascade.
func (m *Metrics) CascadeFinished(depth int) {
	if m == nil {
		return
	}
	m.cascadeDepth.Observe(float64(depth))
}

// SetQueueDepth implements engine.QueueDepthObserver, a separate
// interface from Observer since the queue length has no per-firing
// hook to attach to: the engine samples it directly off Engine.QueueDepth
// as OnEvent drains and refills the cascade queue.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
