package telemetry

import (
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultSensorHistory is the number of readings kept per sensor.
const DefaultSensorHistory = 20

// Point is one historical reading.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SensorState is a snapshot of one sensor.
type SensorState struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Unit         string    `json:"unit"`
	CurrentValue float64   `json:"current_value"`
	History      []Point   `json:"history"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type sensorRecord struct {
	id        string
	label     string
	unit      string
	current   float64
	history   *Ring[Point]
	updatedAt time.Time
}

func (r *sensorRecord) snapshot() SensorState {
	return SensorState{
		ID:           r.id,
		Label:        r.label,
		Unit:         r.unit,
		CurrentValue: r.current,
		History:      r.history.Items(),
		UpdatedAt:    r.updatedAt,
	}
}

// SensorStore keeps the latest value and recent history per sensor.
//
// Sensors are discovered on their first reading and never removed. Label and
// unit follow "last non-empty wins": an empty label or unit on a later reading
// keeps the previous one.
//
// All public methods are thread-safe.
type SensorStore struct {
	sensors    map[string]*sensorRecord
	historyCap int
	mu         sync.RWMutex
	now        func() time.Time
}

// NewSensorStore creates a store keeping historyCap readings per sensor.
// A non-positive historyCap uses DefaultSensorHistory.
func NewSensorStore(historyCap int) *SensorStore {
	if historyCap < 1 {
		historyCap = DefaultSensorHistory
	}
	return &SensorStore{
		sensors:    make(map[string]*sensorRecord),
		historyCap: historyCap,
		now:        time.Now,
	}
}

// Upsert records a reading taken now. It returns false if id is empty or
// value is NaN or infinite.
func (s *SensorStore) Upsert(id string, value float64, unit, label string) bool {
	return s.UpsertAt(id, value, unit, label, s.now())
}

// UpsertAt records a reading taken at at.
func (s *SensorStore) UpsertAt(id string, value float64, unit, label string, at time.Time) bool {
	if id == "" || math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sensors[id]
	if !ok {
		if label == "" {
			label = id
		}
		rec = &sensorRecord{
			id:      id,
			label:   label,
			unit:    unit,
			history: NewRing[Point](s.historyCap, OldestFirst),
		}
		s.sensors[id] = rec
	} else {
		if label != "" {
			rec.label = label
		}
		if unit != "" {
			rec.unit = unit
		}
	}

	rec.current = value
	rec.updatedAt = at
	rec.history.Append(Point{Time: at, Value: value})
	return true
}

// UpsertValue records a reading of unknown type. Non-numeric values are
// rejected and leave the store untouched.
func (s *SensorStore) UpsertValue(id string, value any, unit, label string) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	return s.Upsert(id, v, unit, label)
}

// toFloat converts numeric values. Strings and booleans are not numbers.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Get returns a snapshot of one sensor.
func (s *SensorStore) Get(id string) (SensorState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sensors[id]
	if !ok {
		return SensorState{}, false
	}
	return rec.snapshot(), true
}

// List returns snapshots of every sensor sorted by id.
func (s *SensorStore) List() []SensorState {
	s.mu.RLock()
	out := make([]SensorState, 0, len(s.sensors))
	for _, rec := range s.sensors {
		out = append(out, rec.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of discovered sensors.
func (s *SensorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sensors)
}
