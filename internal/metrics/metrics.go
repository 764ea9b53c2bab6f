// Package metrics exposes the response pipeline's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ragraft"

// ServiceName is the AppContext service name of the process metrics.
const ServiceName = "metrics"

// Metrics holds the pipeline collectors. All Observe methods are safe on
// a nil receiver so callers may run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	Responses        *prometheus.CounterVec
	ResponseDuration *prometheus.HistogramVec
	RoutingDecisions *prometheus.CounterVec
	RuleMatches      prometheus.Counter
	Enrichments      prometheus.Counter
	GenerationErrors *prometheus.CounterVec
	Tokens           *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses by generation backend and outcome.",
		}, []string{"provider", "outcome"}),
		ResponseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_duration_seconds",
			Help:      "End-to-end response latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		RoutingDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Retrieval gate decisions by outcome and reason.",
		}, []string{"needs_rag", "reason"}),
		RuleMatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Messages answered with a response rule.",
		}),
		Enrichments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_enrichments_total",
			Help:      "Conversations grounded with retrieved knowledge.",
		}),
		GenerationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Failed generation calls by backend and cause.",
		}, []string{"provider", "cause"}),
		Tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by generation backends.",
		}, []string{"provider", "type"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveResponse records one finished response.
func (m *Metrics) ObserveResponse(providerName, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(providerName, outcome).Inc()
	m.ResponseDuration.WithLabelValues(providerName).Observe(d.Seconds())
}

// ObserveRouting records a retrieval gate decision.
func (m *Metrics) ObserveRouting(needsRAG bool, reason string) {
	if m == nil {
		return
	}
	m.RoutingDecisions.WithLabelValues(strconv.FormatBool(needsRAG), reason).Inc()
}

// ObserveRuleMatch records a rule hit.
func (m *Metrics) ObserveRuleMatch() {
	if m == nil {
		return
	}
	m.RuleMatches.Inc()
}

// ObserveEnrichment records a knowledge enrichment.
func (m *Metrics) ObserveEnrichment() {
	if m == nil {
		return
	}
	m.Enrichments.Inc()
}

// ObserveGenerationError records a failed generation call, labelled by
// the provider error class.
func (m *Metrics) ObserveGenerationError(providerName string, err error) {
	if m == nil {
		return
	}
	m.GenerationErrors.WithLabelValues(providerName, provider.CauseLabel(err)).Inc()
}

// ObserveUsage records reported token counts.
func (m *Metrics) ObserveUsage(providerName string, u *provider.Usage) {
	if m == nil || u == nil {
		return
	}
	m.Tokens.WithLabelValues(providerName, "prompt").Add(float64(u.PromptTokens))
	m.Tokens.WithLabelValues(providerName, "completion").Add(float64(u.CompletionTokens))
}

// RegisterProviderHealth exports each backend's health state as a gauge
// (1 for the current state, 0 otherwise), read from fn at scrape time.
func (m *Metrics) RegisterProviderHealth(fn func() map[provider.Kind]string) {
	m.registry.MustRegister(&healthCollector{
		read: fn,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "health"),
			"Generation backend health state.",
			[]string{"provider", "state"}, nil,
		),
	})
}

type healthCollector struct {
	read func() map[provider.Kind]string
	desc *prometheus.Desc
}

func (c *healthCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *healthCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, state := range c.read() {
		for _, s := range provider.HealthStates() {
			v := 0.0
			if s == state {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, v, string(kind), s)
		}
	}
}
