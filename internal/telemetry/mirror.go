package telemetry

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/catalyst-dashboard/internal/bus"
)

// PointWriter persists sensor readings. *influxdb.Client implements it.
type PointWriter interface {
	WriteSensorReading(sensorID, unit, label string, value float64, at time.Time)
}

// SensorMirror copies every accepted sensor reading to a PointWriter.
// It keeps no state of its own; the dashboard stores stay authoritative.
type SensorMirror struct {
	writer PointWriter
	now    func() time.Time
	logger Logger

	mu  sync.Mutex
	sub *bus.Subscription
}

// NewSensorMirror creates a mirror writing to w.
func NewSensorMirror(w PointWriter) *SensorMirror {
	return &SensorMirror{
		writer: w,
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the mirror.
func (m *SensorMirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Attach subscribes the mirror to pattern.
func (m *SensorMirror) Attach(s Subscriber, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		return errors.New("telemetry: mirror already attached")
	}
	sub, err := s.Subscribe(pattern, m.handle)
	if err != nil {
		return err
	}
	m.sub = sub
	m.logger.Info("sensor mirror attached", "pattern", pattern)
	return nil
}

// Detach cancels the mirror's subscription.
func (m *SensorMirror) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		m.sub.Cancel()
		m.sub = nil
	}
}

func (m *SensorMirror) handle(ev bus.Event) error {
	reading, ok := ev.Payload.(bus.SensorReading)
	if !ok {
		return shapeError(ev.Payload)
	}
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return nil
	}

	id := ev.Topic
	if id == "" {
		id = ev.Type
	}
	if id == "" {
		return nil
	}
	m.writer.WriteSensorReading(id, reading.Unit, reading.Label, reading.Value, ev.TimeOr(m.now()))
	return nil
}
