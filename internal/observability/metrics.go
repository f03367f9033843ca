package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes the Prometheus collectors for the gateway.
//
// Tracked signals:
//   - inbound webhook events by kind and outcome
//   - turn throughput and latency
//   - LLM request counts and latency by model
//   - tool execution counts and latency by tool
//   - pending debounce timers
//   - errors by component
type Metrics struct {
	// InboundEvents counts webhook deliveries.
	// Labels: kind (text|audio|ignore), outcome (queued|ignored|denied|error)
	InboundEvents *prometheus.CounterVec

	// TurnsTotal counts completed turns.
	// Labels: status (ok|apology|dropped)
	TurnsTotal *prometheus.CounterVec

	// TurnDuration measures end-to-end turn latency in seconds.
	TurnDuration prometheus.Histogram

	// LLMRequests counts LLM calls.
	// Labels: model, status (success|error)
	LLMRequests *prometheus.CounterVec

	// LLMRequestDuration measures LLM call latency in seconds.
	// Labels: model
	LLMRequestDuration *prometheus.HistogramVec

	// ToolExecutions counts tool invocations.
	// Labels: tool, status (success|error)
	ToolExecutions *prometheus.CounterVec

	// ToolExecutionDuration measures tool latency in seconds.
	// Labels: tool
	ToolExecutionDuration *prometheus.HistogramVec

	// DebouncePending tracks users with an armed debounce timer.
	DebouncePending prometheus.Gauge

	// Errors counts errors by component and type.
	// Labels: component, error_type
	Errors *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors with the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests should pass a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		InboundEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarbas_inbound_events_total",
				Help: "Webhook deliveries by message kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarbas_turns_total",
				Help: "Completed conversation turns by status.",
			},
			[]string{"status"},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jarbas_turn_duration_seconds",
				Help:    "End-to-end turn latency.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarbas_llm_requests_total",
				Help: "LLM requests by model and status.",
			},
			[]string{"model", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jarbas_llm_request_duration_seconds",
				Help:    "LLM request latency.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		ToolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarbas_tool_executions_total",
				Help: "Tool invocations by tool and status.",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jarbas_tool_execution_duration_seconds",
				Help:    "Tool execution latency.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool"},
		),
		DebouncePending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jarbas_debounce_pending_timers",
				Help: "Users with an armed debounce timer.",
			},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarbas_errors_total",
				Help: "Errors by component and type.",
			},
			[]string{"component", "error_type"},
		),
	}
}
