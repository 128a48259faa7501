// Package telemetry wires the turn/tool dispatch pipeline to an
// in-process Prometheus registry and an OTel tracer: one turn becomes
// one span, one tool invocation becomes a child span carrying its
// invocation id / parent invocation id / attempt (spec.md §5), and the
// unified executor's already-computed duration/was_cached fields
// (spec.md §4.3 step 10) become counters and histograms. Grounded on
// kadirpekel-hector's pkg/observability/metrics.go (nil-receiver-safe
// Metrics struct, Namespace/Subsystem/Name CounterVec/HistogramVec
// layout) and goadesign-goa-ai's runtime/agents/telemetry package
// (Tracer/Span abstraction over the OTel SDK), trimmed to the
// subsystems this module actually has: turn, LLM call, tool call. No
// HTTP server is started anywhere in this module (matches the
// Non-goals around external surfaces); Registry() exists so a caller
// that does run one can expose it.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters/histograms this module records. A nil
// *Metrics is valid everywhere below: every Record method is a no-op
// on a nil receiver, so telemetry can be wired optionally without an
// extra "enabled" check at every call site.
type Metrics struct {
	registry *prometheus.Registry

	turnCalls     *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	llmErrors   *prometheus.CounterVec

	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	toolErrors    *prometheus.CounterVec
	toolCacheHits *prometheus.CounterVec
}

// NewMetrics builds a fresh, independently-registered Metrics set under
// namespace (e.g. "vtcode").
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.turnCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "turn", Name: "total",
		Help: "Total number of turns run.",
	}, []string{"done_reason"})
	m.turnDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "turn", Name: "duration_seconds",
		Help:    "Turn wall-clock duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms..819s
	}, []string{"done_reason"})
	m.registry.MustRegister(m.turnCalls, m.turnDuration)

	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of provider LLM calls.",
	}, []string{"provider", "model"})
	m.llmDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help:    "LLM call duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms..204s
	}, []string{"provider", "model"})
	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM call errors.",
	}, []string{"provider", "model"})
	m.registry.MustRegister(m.llmCalls, m.llmDuration, m.llmErrors)

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool invocations.",
	}, []string{"tool_name"})
	m.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help:    "Tool execution duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms..16s
	}, []string{"tool_name"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool execution errors.",
	}, []string{"tool_name"})
	m.toolCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "cache_hits_total",
		Help: "Total number of tool results served from the result cache.",
	}, []string{"tool_name"})
	m.registry.MustRegister(m.toolCalls, m.toolDuration, m.toolErrors, m.toolCacheHits)

	return m
}

// Registry exposes the underlying Prometheus registry for a caller that
// wants to serve /metrics; nil-safe.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordTurn records one completed turn.
func (m *Metrics) RecordTurn(doneReason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.turnCalls.WithLabelValues(doneReason).Inc()
	m.turnDuration.WithLabelValues(doneReason).Observe(duration.Seconds())
}

// RecordLLMCall records one provider round trip.
func (m *Metrics) RecordLLMCall(provider, model string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider, model).Inc()
	m.llmDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if err != nil {
		m.llmErrors.WithLabelValues(provider, model).Inc()
	}
}

// RecordToolCall records one executor dispatch, using the duration and
// was_cached fields executor.ExecutionResult already computes.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration, cached bool, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolDuration.WithLabelValues(toolName).Observe(duration.Seconds())
	if cached {
		m.toolCacheHits.WithLabelValues(toolName).Inc()
	}
	if err != nil {
		m.toolErrors.WithLabelValues(toolName).Inc()
	}
}
