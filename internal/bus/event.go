package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event is a decoded broker message.
//
// ID, Source and Type come from the producer and may be empty; ID is not
// guaranteed unique across producers. Topic is the concrete routing address the
// message arrived on. Data is shared between all handlers of a message and must
// not be modified.
type Event struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Time   time.Time       `json:"time"`
	Topic  string          `json:"topic"`

	// Payload is the typed view of Data. Never nil after Decode.
	Payload Payload `json:"-"`
}

// TimeOr returns the producer timestamp, or fallback when the event had none.
func (e Event) TimeOr(fallback time.Time) time.Time {
	if e.Time.IsZero() {
		return fallback
	}
	return e.Time
}

// Decode parses a raw payload received on topic into an Event.
//
// The payload must be a JSON object. Missing envelope fields are tolerated:
//   - a missing or unparseable time leaves Time zero ("timestamp" is accepted as an alias)
//   - an object with neither "type" nor "data" is treated as a bare data object
//   - an "id", "source" or "type" that is not a string is left empty
//
// Returns ErrDecode (wrapped) when the payload is not a JSON object.
func Decode(topic string, payload []byte) (Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: payload is not a JSON object", ErrDecode)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	ev := Event{
		ID:     optionalString(fields, "id"),
		Source: optionalString(fields, "source"),
		Type:   optionalString(fields, "type"),
		Data:   fields["data"],
		Topic:  topic,
		Time:   parseTime(fields["time"], fields["timestamp"]),
	}

	_, hasData := fields["data"]
	_, hasType := fields["type"]
	if !hasData && !hasType {
		ev.Data = json.RawMessage(trimmed)
	}

	ev.Payload = decodePayload(ev.Type, topic, ev.Data)
	return ev, nil
}

// parseTime returns the first candidate that holds an RFC 3339 string.
func parseTime(candidates ...json.RawMessage) time.Time {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
