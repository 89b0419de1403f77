package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments shared by the transcription services.
type Metrics struct {
	taskTotal       metric.Int64Counter
	taskDuration    metric.Float64Histogram
	queueDepth      metric.Int64UpDownCounter
	forwardTotal    metric.Int64Counter
	forwardDuration metric.Float64Histogram
	tokenCacheTotal metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	taskTotal, err := meter.Int64Counter("transcription.task.total",
		metric.WithDescription("Transcription tasks by final status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.task.total counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("transcription.task.duration",
		metric.WithDescription("Time from dequeue to completion in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.task.duration histogram: %w", err)
	}

	queueDepth, err := meter.Int64UpDownCounter("transcription.queue.depth",
		metric.WithDescription("Tasks currently waiting in the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.queue.depth gauge: %w", err)
	}

	forwardTotal, err := meter.Int64Counter("proxy.forward.total",
		metric.WithDescription("Requests forwarded upstream by status class"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating proxy.forward.total counter: %w", err)
	}

	forwardDuration, err := meter.Float64Histogram("proxy.forward.duration",
		metric.WithDescription("Upstream round-trip time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating proxy.forward.duration histogram: %w", err)
	}

	tokenCacheTotal, err := meter.Int64Counter("proxy.token_cache.total",
		metric.WithDescription("Identity token cache lookups by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating proxy.token_cache.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		taskTotal:       taskTotal,
		taskDuration:    taskDuration,
		queueDepth:      queueDepth,
		forwardTotal:    forwardTotal,
		forwardDuration: forwardDuration,
		tokenCacheTotal: tokenCacheTotal,
		errorTotal:      errorTotal,
	}, nil
}

// RecordEnqueue increments the queue depth.
func (m *Metrics) RecordEnqueue(ctx context.Context) {
	m.queueDepth.Add(ctx, 1)
}

// RecordTask decrements the queue depth and records a finished task.
func (m *Metrics) RecordTask(ctx context.Context, status string, duration time.Duration) {
	m.queueDepth.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	m.taskDuration.Record(ctx, duration.Seconds())
}

// RecordForward records a proxied request.
func (m *Metrics) RecordForward(ctx context.Context, target string, statusCode int, duration time.Duration) {
	m.forwardTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.Int("status", statusCode),
	))
	m.forwardDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("target", target),
	))
}

// RecordTokenCache records a token cache lookup outcome ("hit" or "miss").
func (m *Metrics) RecordTokenCache(ctx context.Context, outcome string) {
	m.tokenCacheTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
