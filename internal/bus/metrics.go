package bus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names recorded by the dispatcher.
const (
	MetricMessagesReceived = "catalyst.bus.messages.received"
	MetricDecodeErrors     = "catalyst.bus.decode.errors"
	MetricDeliveries       = "catalyst.bus.deliveries"
	MetricHandlerFailures  = "catalyst.bus.handler.failures"
	MetricDispatchDuration = "catalyst.bus.dispatch.duration"
)

// Metrics records dispatcher activity as OpenTelemetry instruments.
// A nil *Metrics records nothing.
type Metrics struct {
	received     metric.Int64Counter
	decodeErrors metric.Int64Counter
	deliveries   metric.Int64Counter
	failures     metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewMetrics creates the dispatcher instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	received, err := meter.Int64Counter(MetricMessagesReceived,
		metric.WithDescription("Number of broker messages received"),
	)
	if err != nil {
		return nil, err
	}

	decodeErrors, err := meter.Int64Counter(MetricDecodeErrors,
		metric.WithDescription("Number of messages dropped because they could not be decoded"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter(MetricDeliveries,
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(MetricHandlerFailures,
		metric.WithDescription("Number of handler invocations that returned an error or panicked"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(MetricDispatchDuration,
		metric.WithDescription("Time spent dispatching one message to all matching handlers"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		received:     received,
		decodeErrors: decodeErrors,
		deliveries:   deliveries,
		failures:     failures,
		duration:     duration,
	}, nil
}

// topicFamily is the first topic segment, used as a low-cardinality attribute.
func topicFamily(topicName string) string {
	for i := 0; i < len(topicName); i++ {
		if topicName[i] == '/' {
			return topicName[:i]
		}
	}
	return topicName
}

func (m *Metrics) messageReceived(ctx context.Context, topicName string) {
	if m == nil {
		return
	}
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("family", topicFamily(topicName))))
}

func (m *Metrics) decodeFailed(ctx context.Context, topicName string) {
	if m == nil {
		return
	}
	m.decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("family", topicFamily(topicName))))
}

func (m *Metrics) delivered(ctx context.Context, kind Kind) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (m *Metrics) handlerFailed(ctx context.Context, kind Kind, reason string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) dispatched(ctx context.Context, kind Kind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("kind", string(kind))))
}
