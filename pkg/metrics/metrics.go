package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the service exports. Collectors are bound to
// their own registry so tests and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	WorkflowRuns       *prometheus.CounterVec
	IngestionsTotal    *prometheus.CounterVec
	ModelCalls         *prometheus.CounterVec
	ModelCallDuration  *prometheus.HistogramVec
	EmbeddingsDegraded prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragflow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ragflow_http_request_duration_seconds",
				Help: "Duration of HTTP requests",
			},
			[]string{"route", "method"},
		),
		WorkflowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragflow_workflow_runs_total",
				Help: "Workflow executions by outcome",
			},
			[]string{"status", "reason"},
		),
		IngestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragflow_ingestions_total",
				Help: "Document ingestions by final stage reached",
			},
			[]string{"outcome"},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragflow_model_calls_total",
				Help: "Language model calls by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		ModelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragflow_model_call_duration_seconds",
				Help:    "Wall time of language model calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"backend"},
		),
		EmbeddingsDegraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ragflow_embeddings_unavailable_total",
				Help: "Ingestions that continued without a usable embedding",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.WorkflowRuns,
		m.IngestionsTotal,
		m.ModelCalls,
		m.ModelCallDuration,
		m.EmbeddingsDegraded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
