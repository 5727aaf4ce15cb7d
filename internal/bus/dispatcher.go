package bus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Failure reasons reported on the handler failure metric.
const (
	reasonError = "error"
	reasonPanic = "panic"
)

// Dispatcher decodes raw broker messages and delivers them to matching
// subscriptions.
//
// OnMessage is expected to be called from a single goroutine (the transport's
// delivery goroutine); delivery order then equals arrival order.
type Dispatcher struct {
	registry *Registry
	logger   Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetMetrics enables metric recording. Pass nil to disable.
func (d *Dispatcher) SetMetrics(m *Metrics) {
	d.metrics = m
}

// OnMessage handles one inbound message. Malformed payloads are logged and
// dropped without reaching any handler.
func (d *Dispatcher) OnMessage(topicName string, payload []byte) {
	ctx := context.Background()
	d.metrics.messageReceived(ctx, topicName)

	ev, err := Decode(topicName, payload)
	if err != nil {
		d.metrics.decodeFailed(ctx, topicName)
		d.logger.Warn("dropping malformed message", "topic", topicName, "bytes", len(payload), "error", err)
		return
	}

	d.Dispatch(ev)
}

// Dispatch delivers an already decoded event and returns the number of
// handlers that ran.
func (d *Dispatcher) Dispatch(ev Event) int {
	ctx := context.Background()
	start := time.Now()
	if ev.Payload == nil {
		ev.Payload = decodePayload(ev.Type, ev.Topic, ev.Data)
	}
	kind := ev.Payload.Kind()

	subs := d.registry.Match(ev.Topic)
	ran := 0
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		ran++
		d.metrics.delivered(ctx, kind)

		if err := d.invoke(sub, ev); err != nil {
			var panicked handlerPanic
			if errors.As(err, &panicked) {
				d.metrics.handlerFailed(ctx, kind, reasonPanic)
				d.logger.Error("handler panicked",
					"topic", ev.Topic,
					"pattern", sub.Pattern(),
					"subscription", sub.ID(),
					"panic", panicked.value,
				)
				continue
			}
			d.metrics.handlerFailed(ctx, kind, reasonError)
			d.logger.Debug("handler returned error",
				"topic", ev.Topic,
				"pattern", sub.Pattern(),
				"subscription", sub.ID(),
				"error", err,
			)
		}
	}

	d.metrics.dispatched(ctx, kind, time.Since(start))
	return ran
}

// handlerPanic carries a recovered panic value out of invoke.
type handlerPanic struct {
	value any
}

func (p handlerPanic) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

// invoke runs one handler, converting a panic into a handlerPanic error.
func (d *Dispatcher) invoke(sub *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = handlerPanic{value: r}
		}
	}()
	return sub.handler(ev)
}
