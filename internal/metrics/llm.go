package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "questiongen"

// LLM backend Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total LLM backend errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	LLMBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_budget_tokens_remaining",
			Help:      "Remaining LLM token budget",
		},
		[]string{"provider", "period"},
	)
)

// Pipeline Prometheus metrics.
var (
	ChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_chunks_total",
			Help:      "Chunk summarization outcomes",
		},
		[]string{"result"}, // "ok" / "skipped"
	)

	SynthesisFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_synthesis_failures_total",
			Help:      "Rejected model responses by stage and kind",
		},
		[]string{"stage", "kind"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline duration by content type",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		},
		[]string{"content_type", "status"},
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers LLM and pipeline metrics. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMErrorsTotal)
	prometheus.MustRegister(LLMBudgetTokensRemaining)
	prometheus.MustRegister(ChunksTotal)
	prometheus.MustRegister(SynthesisFailuresTotal)
	prometheus.MustRegister(PipelineDuration)
	llmMetricsRegistered = true
}

// ObserveCompletion records one finished backend call.
func ObserveCompletion(provider, model string, seconds float64, promptTokens, completionTokens int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMRequestsTotal.WithLabelValues(provider, model, status).Inc()
	LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}
