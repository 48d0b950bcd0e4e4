package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request outcomes.
const (
	OutcomeOpened = "opened"
	OutcomeFailed = "failed"
)

// Stream terminations.
const (
	TerminationStop   = "stop"
	TerminationEnded  = "ended"
	TerminationFailed = "failed"
)

// StreamMetrics holds the instruments recorded around response streams.
// A nil *StreamMetrics records nothing.
type StreamMetrics struct {
	requests    metric.Int64Counter
	retries     metric.Int64Counter
	records     metric.Int64Counter
	frameErrors metric.Int64Counter
	openLatency metric.Float64Histogram
}

// NewStreamMetrics creates the stream instruments on meter. A nil meter uses
// the global provider.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	requests, err := meter.Int64Counter("llm.stream.requests",
		metric.WithDescription("Completion stream requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm.stream.requests counter: %w", err)
	}

	retries, err := meter.Int64Counter("llm.stream.retries",
		metric.WithDescription("Retried completion requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm.stream.retries counter: %w", err)
	}

	records, err := meter.Int64Counter("llm.stream.records",
		metric.WithDescription("Normalized records emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm.stream.records counter: %w", err)
	}

	frameErrors, err := meter.Int64Counter("llm.stream.frame_errors",
		metric.WithDescription("Malformed completion frames skipped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm.stream.frame_errors counter: %w", err)
	}

	openLatency, err := meter.Float64Histogram("llm.stream.open_duration",
		metric.WithDescription("Time until a response stream was obtained, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm.stream.open_duration histogram: %w", err)
	}

	return &StreamMetrics{
		requests:    requests,
		retries:     retries,
		records:     records,
		frameErrors: frameErrors,
		openLatency: openLatency,
	}, nil
}

// RecordRequest records the outcome of opening a stream.
func (m *StreamMetrics) RecordRequest(ctx context.Context, model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.openLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordRetry records one retried request.
func (m *StreamMetrics) RecordRetry(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}

// RecordRecord records one emitted record.
func (m *StreamMetrics) RecordRecord(ctx context.Context, finished bool) {
	if m == nil {
		return
	}
	m.records.Add(ctx, 1, metric.WithAttributes(attribute.Bool("finished", finished)))
}

// RecordFrameError records one skipped frame.
func (m *StreamMetrics) RecordFrameError(ctx context.Context) {
	if m == nil {
		return
	}
	m.frameErrors.Add(ctx, 1)
}
