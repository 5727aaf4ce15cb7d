package bus

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const sensorPayload = `{"id":"1","source":"hw","type":"sensor.cpu.temp","data":{"value":40},"time":"2026-01-01T00:00:00Z"}`

// =============================================================================
// OnMessage Tests
// =============================================================================

func TestOnMessageDeliversInRegistrationOrder(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	var order []string
	record := func(name string) Handler {
		return func(ev Event) error {
			order = append(order, name)
			return nil
		}
	}

	_, _ = reg.Subscribe("sensor/+/+", record("first"))
	_, _ = reg.Subscribe("sensor/+/+", record("second"))
	_, _ = reg.Subscribe("agent/+/log", record("agent"))

	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))

	if want := []string{"first", "second"}; !reflect.DeepEqual(order, want) {
		t.Errorf("delivery order = %v, want %v", order, want)
	}
}

func TestOnMessageSetsTopic(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	var got Event
	_, _ = reg.Subscribe("sensor/#", func(ev Event) error {
		got = ev
		return nil
	})

	disp.OnMessage("sensor/gpu/load", []byte(sensorPayload))

	if got.Topic != "sensor/gpu/load" {
		t.Errorf("Topic = %q, want sensor/gpu/load", got.Topic)
	}
}

func TestOnMessageDropsMalformed(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	calls := 0
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error {
		calls++
		return nil
	})

	disp.OnMessage("sensor/cpu/temp", []byte("not json"))
	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (malformed message dropped)", calls)
	}
}

func TestOnMessageIsolatesFailures(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	delivered := 0
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error { panic("boom") })
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error { return errors.New("rejected") })
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error {
		delivered++
		return nil
	})

	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))
	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))

	if delivered != 2 {
		t.Errorf("sibling deliveries = %d, want 2", delivered)
	}
}

func TestNonNumericSensorOnlyAffectsTypedConsumer(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	readings := 0
	raw := 0
	_, _ = reg.Subscribe("sensor/+/+", func(ev Event) error {
		if _, ok := ev.Payload.(SensorReading); ok {
			readings++
		}
		return nil
	})
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error {
		raw++
		return nil
	})

	disp.OnMessage("sensor/cpu/temp", []byte(`{"type":"sensor.cpu.temp","data":{"value":"n/a"}}`))

	if readings != 0 {
		t.Errorf("typed consumer saw %d readings, want 0", readings)
	}
	if raw != 1 {
		t.Errorf("raw consumer calls = %d, want 1", raw)
	}
}

// =============================================================================
// Cancellation Tests
// =============================================================================

func TestCancelInsideHandlerStopsLaterSiblings(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	secondCalls := 0
	var second *Subscription
	_, _ = reg.Subscribe("repo/#", func(Event) error {
		second.Cancel()
		return nil
	})
	second, _ = reg.Subscribe("repo/#", func(Event) error {
		secondCalls++
		return nil
	})

	disp.OnMessage("repo/catalyst/push", []byte(`{"type":"repo.push","data":{}}`))

	if secondCalls != 0 {
		t.Errorf("cancelled subscription ran %d times", secondCalls)
	}
}

func TestNoDeliveryAfterCancel(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	calls := 0
	sub, _ := reg.Subscribe("sensor/+/+", func(Event) error {
		calls++
		return nil
	})

	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))
	sub.Cancel()
	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}

func TestDispatchFillsMissingPayload(t *testing.T) {
	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)

	var got Payload
	_, _ = reg.Subscribe("agent/+/log", func(ev Event) error {
		got = ev.Payload
		return nil
	})

	n := disp.Dispatch(Event{Topic: "agent/runner/log", Type: TypeAgentLog, Data: []byte(`{"message":"done"}`)})
	if n != 1 {
		t.Fatalf("Dispatch() = %d, want 1", n)
	}
	if _, ok := got.(AgentLog); !ok {
		t.Errorf("Payload = %T, want AgentLog", got)
	}
}

// =============================================================================
// Metrics Tests
// =============================================================================

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("%s metric not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] data for %s, got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDispatcherMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	reg := NewRegistry(nil)
	disp := NewDispatcher(reg)
	disp.SetMetrics(m)

	_, _ = reg.Subscribe("sensor/+/+", nopHandler)
	_, _ = reg.Subscribe("sensor/+/+", func(Event) error { return errors.New("nope") })

	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))
	disp.OnMessage("sensor/cpu/temp", []byte(sensorPayload))
	disp.OnMessage("sensor/cpu/temp", []byte("{"))

	rm := collectMetrics(t, reader)

	if got := sumValue(t, rm, MetricMessagesReceived); got != 3 {
		t.Errorf("%s = %d, want 3", MetricMessagesReceived, got)
	}
	if got := sumValue(t, rm, MetricDecodeErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricDecodeErrors, got)
	}
	if got := sumValue(t, rm, MetricDeliveries); got != 4 {
		t.Errorf("%s = %d, want 4", MetricDeliveries, got)
	}
	if got := sumValue(t, rm, MetricHandlerFailures); got != 2 {
		t.Errorf("%s = %d, want 2", MetricHandlerFailures, got)
	}
	if findMetric(rm, MetricDispatchDuration) == nil {
		t.Errorf("%s metric not found", MetricDispatchDuration)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.messageReceived(context.Background(), "sensor/cpu/temp")
	m.handlerFailed(context.Background(), KindSensor, reasonPanic)
}

func TestTopicFamily(t *testing.T) {
	tests := map[string]string{
		"sensor/cpu/temp":    "sensor",
		"infra/docker/state": "infra",
		"repo":               "repo",
		"":                   "",
	}
	for in, want := range tests {
		if got := topicFamily(in); got != want {
			t.Errorf("topicFamily(%q) = %q, want %q", in, got, want)
		}
	}
}
