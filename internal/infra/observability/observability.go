// Package observability provides lightweight tracing and Prometheus metrics
// for the publishing pipeline's components.
//
// This provides:
//   - Trace spans for a round's lifecycle (reset → MTB → TS → aggregate → select → move)
//   - Structured log correlation with trace IDs
//   - Per-component processed/failed/skipped counters
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Trace Spans — Lightweight span tracking without external OTel SDK dependency
// ═══════════════════════════════════════════════════════════════════════════

// SpanKind classifies a span.
type SpanKind int

const (
	SpanInternal SpanKind = iota
	SpanServer
	SpanClient
)

// Span represents a unit of work within a distributed trace.
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	Kind      SpanKind          `json:"kind"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Status    SpanStatus        `json:"status"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// SpanStatus indicates success/failure.
type SpanStatus int

const (
	SpanOK SpanStatus = iota
	SpanError
)

// ─── Tracer ─────────────────────────────────────────────────────────────────

// Tracer provides lightweight distributed tracing.
// In production, this would wrap OpenTelemetry SDK.
// Phase 3 implementation stores spans in-memory for inspection and export.
type Tracer struct {
	mu       sync.Mutex
	spans    []Span
	maxSpans int
	enabled  bool
}

// TracerConfig configures the tracer.
type TracerConfig struct {
	Enabled  bool
	MaxSpans int // ring buffer size (default 10_000)
}

// DefaultTracerConfig returns production defaults.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Enabled:  true,
		MaxSpans: 10_000,
	}
}

// NewTracer creates a new tracer.
func NewTracer(cfg TracerConfig) *Tracer {
	return &Tracer{
		spans:    make([]Span, 0, cfg.MaxSpans),
		maxSpans: cfg.MaxSpans,
		enabled:  cfg.Enabled,
	}
}

// StartSpan begins a new span with the given operation name.
// Returns the span (caller must call EndSpan when done).
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs map[string]string) *Span {
	if !t.enabled {
		return &Span{Operation: operation}
	}

	span := &Span{
		TraceID:   traceIDFromContext(ctx),
		SpanID:    generateID(),
		ParentID:  spanIDFromContext(ctx),
		Operation: operation,
		Kind:      SpanInternal,
		StartTime: time.Now(),
		Status:    SpanOK,
		Attrs:     attrs,
	}

	return span
}

// EndSpan completes a span and records it.
func (t *Tracer) EndSpan(span *Span, err error) {
	if !t.enabled || span == nil {
		return
	}

	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	if err != nil {
		span.Status = SpanError
		if span.Attrs == nil {
			span.Attrs = make(map[string]string)
		}
		span.Attrs["error"] = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Ring buffer: overwrite oldest if at capacity
	if len(t.spans) >= t.maxSpans {
		t.spans = t.spans[1:]
	}
	t.spans = append(t.spans, *span)

	TracesRecorded.Inc()
	if span.Status == SpanError {
		TraceErrors.Inc()
	}
}

// Spans returns a copy of the recent spans.
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || limit > len(t.spans) {
		limit = len(t.spans)
	}

	// Return most recent spans
	start := len(t.spans) - limit
	out := make([]Span, limit)
	copy(out, t.spans[start:])
	return out
}

// SpanCount returns the number of recorded spans.
func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

// Reset clears all recorded spans.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = t.spans[:0]
}

// ─── Context Helpers ────────────────────────────────────────────────────────

type contextKey string

const (
	traceIDKey contextKey = "editor-engine-trace-id"
	spanIDKey  contextKey = "editor-engine-span-id"
)

// WithTraceID returns a context with the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSpanID returns a context with the given span ID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return generateID()
}

func spanIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(spanIDKey).(string); ok {
		return v
	}
	return ""
}

func generateID() string {
	return uuid.NewString()
}

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Round Metrics ──────────────────────────────────────────────────────────

// RoundsStarted tracks Planner rounds that passed the precondition check.
var RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "planner",
	Name:      "rounds_started_total",
	Help:      "Total planning rounds that passed the precondition check.",
})

// RoundsCompleted tracks rounds that selected and moved a winner.
var RoundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "planner",
	Name:      "rounds_completed_total",
	Help:      "Total planning rounds that moved a winner to to_publish.",
})

// RoundsAborted tracks rounds that found no eligible winner.
var RoundsAborted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "planner",
	Name:      "rounds_aborted_total",
	Help:      "Total planning rounds aborted for lack of an analyzed winner.",
})

// RoundDuration tracks wall-clock time spent inside runRound.
var RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "editor_engine",
	Subsystem: "planner",
	Name:      "round_duration_seconds",
	Help:      "Duration of a complete planning round.",
	Buckets:   []float64{1, 5, 15, 30, 45, 60, 90, 120},
})

// ─── Per-component Batch Outcome Metrics ────────────────────────────────────

// Outcome is the result of processing one record in a component's batch walk.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// RecordsHandled tracks per-record outcomes reported by the periodic
// components (LTM, MTB, TimeScorer, Aggregator, Painter, Publisher,
// Previewer, Cleaner), so one bad row never hides inside an aggregate
// success count. The scorers report Outcome values; Painter, Publisher,
// Previewer and Cleaner use their own outcome labels.
var RecordsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "component",
	Name:      "records_handled_total",
	Help:      "Records handled by each periodic component, by outcome.",
}, []string{"component", "outcome"})

// ─── External Call Metrics ─────────────────────────────────────────────────

// ExternalCalls tracks outbound HTTP calls to the classifier, image
// generator, and delivery surface.
var ExternalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "external",
	Name:      "calls_total",
	Help:      "Outbound calls to external collaborators, by target and outcome.",
}, []string{"target", "outcome"})

// ExternalCallLatency tracks outbound call latency by target.
var ExternalCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "editor_engine",
	Subsystem: "external",
	Name:      "call_latency_seconds",
	Help:      "Outbound call latency in seconds, by target.",
	Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"target"})

// CircuitBreakerState tracks each client's circuit breaker state.
var CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "editor_engine",
	Subsystem: "circuit_breaker",
	Name:      "state",
	Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
}, []string{"name"})

// ─── Trace Metrics ──────────────────────────────────────────────────────────

// TracesRecorded tracks total spans recorded.
var TracesRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "traces",
	Name:      "spans_recorded_total",
	Help:      "Total trace spans recorded.",
})

// TraceErrors tracks error spans.
var TraceErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "editor_engine",
	Subsystem: "traces",
	Name:      "error_spans_total",
	Help:      "Total trace spans with error status.",
})
