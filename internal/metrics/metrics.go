// Package metrics exposes Prometheus counters for model calls and the
// structured-output extractor.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeEmpty    = "empty"
	OutcomeCanceled = "canceled"
)

// Metrics owns a private registry so tests and multiple servers do not collide.
type Metrics struct {
	registry     *prometheus.Registry
	llmRequests  *prometheus.CounterVec
	llmDuration  *prometheus.HistogramVec
	extractStage *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Language model calls by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of language model calls.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"provider", "operation"}),
		extractStage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extract_stage_total",
			Help: "Structured-output extraction attempts by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
	m.registry.MustRegister(
		m.llmRequests,
		m.llmDuration,
		m.extractStage,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ExtractObserver counts every extraction stage outcome.
func (m *Metrics) ExtractObserver() extract.Observer {
	return func(stage string, ok bool) {
		outcome := OutcomeOK
		if !ok {
			outcome = OutcomeError
		}
		m.extractStage.WithLabelValues(stage, outcome).Inc()
	}
}

// InstrumentLLM wraps client so every call is counted and timed under provider.
func (m *Metrics) InstrumentLLM(client llm.Client, provider string) llm.Client {
	return &instrumentedClient{next: client, provider: provider, metrics: m}
}

type instrumentedClient struct {
	next     llm.Client
	provider string
	metrics  *Metrics
}

func (c *instrumentedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	operation := llm.OperationFromContext(ctx)
	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	c.metrics.llmDuration.WithLabelValues(c.provider, operation).Observe(time.Since(start).Seconds())
	c.metrics.llmRequests.WithLabelValues(c.provider, operation, outcomeOf(err)).Inc()
	return resp, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, llm.ErrEmptyCompletion):
		return OutcomeEmpty
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
