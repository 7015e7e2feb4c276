// Package metrics exposes Prometheus collectors for the optimization pipeline.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Oracle names used as label values.
const (
	OracleStore = "store"
	OraclePrice = "price"
)

// Metrics holds the registry and every collector the server exports.
type Metrics struct {
	registry *prometheus.Registry

	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	runs           *prometheus.CounterVec
	planSavings    prometheus.Histogram
	applyItems     *prometheus.CounterVec
	sessions       *prometheus.GaugeVec
}

// New creates a Metrics with its own registry, including Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartsaver",
			Name:      "oracle_requests_total",
			Help:      "Oracle calls by oracle and outcome.",
		}, []string{"oracle", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cartsaver",
			Name:      "oracle_request_duration_seconds",
			Help:      "Oracle call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
		}, []string{"oracle"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartsaver",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by model and kind.",
		}, []string{"model", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartsaver",
			Name:      "optimization_runs_total",
			Help:      "Finished optimization runs by outcome.",
		}, []string{"outcome"}),
		planSavings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cartsaver",
			Name:      "plan_potential_savings",
			Help:      "Total potential savings of produced plans.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 50, 100},
		}),
		applyItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartsaver",
			Name:      "apply_items_total",
			Help:      "Item write-backs by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cartsaver",
			Name:      "sessions",
			Help:      "Live sessions by state.",
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.oracleRequests,
		m.oracleLatency,
		m.llmTokens,
		m.runs,
		m.planSavings,
		m.applyItems,
		m.sessions,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOracle records one oracle call.
func (m *Metrics) ObserveOracle(oracle string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.oracleRequests.WithLabelValues(oracle, outcome).Inc()
	m.oracleLatency.WithLabelValues(oracle).Observe(took.Seconds())
}

// AddTokens records model token usage.
func (m *Metrics) AddTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	m.llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
}

// ObserveRun records a finished run. savings is only observed for viable plans.
func (m *Metrics) ObserveRun(outcome string, savings float64, viable bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if viable {
		m.planSavings.Observe(savings)
	}
}

// ObserveApply records write-back results.
func (m *Metrics) ObserveApply(applied, failed int) {
	if m == nil {
		return
	}
	m.applyItems.WithLabelValues("applied").Add(float64(applied))
	m.applyItems.WithLabelValues("failed").Add(float64(failed))
}

// SessionMoved moves one session between state gauges. Empty names are skipped.
func (m *Metrics) SessionMoved(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.sessions.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.sessions.WithLabelValues(to).Inc()
	}
}
