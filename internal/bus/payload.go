package bus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies a Payload variant.
type Kind string

// Payload variants.
const (
	KindSensor     Kind = "sensor"
	KindAgentLog   Kind = "agent_log"
	KindRepo       Kind = "repo"
	KindContainers Kind = "containers"
	KindUnknown    Kind = "unknown"
)

// Event types published by the dashboard's producers.
const (
	TypePrefixSensor   = "sensor."
	TypeAgentLog       = "agent.log"
	TypePrefixRepo     = "repo."
	TypeContainerState = "infra.docker.state"
)

// Payload is the typed view of an event's data.
type Payload interface {
	Kind() Kind
}

// SensorReading is a numeric measurement.
type SensorReading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Label string  `json:"label,omitempty"`
}

// Kind implements Payload.
func (SensorReading) Kind() Kind { return KindSensor }

// AgentLog is one line of agent activity.
type AgentLog struct {
	Agent   string `json:"agent,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// Kind implements Payload.
func (AgentLog) Kind() Kind { return KindAgentLog }

// RepoActivity is a repository event (push, issue, pull request).
// Author and URL are frequently absent.
type RepoActivity struct {
	Action string `json:"action"`
	Repo   string `json:"repo,omitempty"`
	Title  string `json:"title,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Author string `json:"author,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Kind implements Payload.
func (RepoActivity) Kind() Kind { return KindRepo }

// Container describes one container reported by the runtime watcher.
type Container struct {
	ID     string  `json:"id"`
	Names  string  `json:"names"`
	Image  string  `json:"image"`
	State  string  `json:"state"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu,omitempty"`
	Memory float64 `json:"memory,omitempty"`
}

// ContainerSnapshot is the full container list at one point in time.
type ContainerSnapshot struct {
	Containers []Container `json:"containers"`
}

// Kind implements Payload.
func (ContainerSnapshot) Kind() Kind { return KindContainers }

// Unknown is any payload the bus has no variant for. Err is set when the event
// claimed a known type but its data did not fit.
type Unknown struct {
	Err error
}

// Kind implements Payload.
func (Unknown) Kind() Kind { return KindUnknown }

// classify picks the variant for an event, preferring the type over the topic.
func classify(eventType, topic string) Kind {
	switch {
	case strings.HasPrefix(eventType, TypePrefixSensor):
		return KindSensor
	case eventType == TypeAgentLog:
		return KindAgentLog
	case strings.HasPrefix(eventType, TypePrefixRepo):
		return KindRepo
	case eventType == TypeContainerState:
		return KindContainers
	}

	segments := strings.Split(topic, "/")
	switch {
	case topic == "infra/docker/state":
		return KindContainers
	case segments[0] == "sensor":
		return KindSensor
	case segments[0] == "agent" && segments[len(segments)-1] == "log":
		return KindAgentLog
	case segments[0] == "repo":
		return KindRepo
	}
	return KindUnknown
}

// decodePayload builds the typed view of data. It never returns nil.
func decodePayload(eventType, topic string, data json.RawMessage) Payload {
	var (
		p   Payload
		err error
	)

	switch classify(eventType, topic) {
	case KindSensor:
		p, err = decodeSensor(data)
	case KindAgentLog:
		p, err = decodeAgentLog(data)
	case KindRepo:
		p, err = decodeRepo(eventType, topic, data)
	case KindContainers:
		p, err = decodeContainers(data)
	default:
		return Unknown{}
	}

	if err != nil {
		return Unknown{Err: err}
	}
	return p
}

// decodeObject unmarshals data into a field map, rejecting non-objects.
func decodeObject(data json.RawMessage) (map[string]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data is missing", ErrShape)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: data is not an object", ErrShape)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: data is null", ErrShape)
	}
	return fields, nil
}

// optionalString returns the field as a string, or "" when absent or not a string.
func optionalString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeSensor(data json.RawMessage) (Payload, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	raw, ok := fields["value"]
	if !ok {
		return nil, fmt.Errorf("%w: sensor value is missing", ErrShape)
	}
	var value *float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: sensor value is not a number", ErrShape)
	}
	if value == nil {
		return nil, fmt.Errorf("%w: sensor value is null", ErrShape)
	}

	return SensorReading{
		Value: *value,
		Unit:  optionalString(fields, "unit"),
		Label: optionalString(fields, "label"),
	}, nil
}

func decodeAgentLog(data json.RawMessage) (Payload, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	return AgentLog{
		Agent:   optionalString(fields, "agent"),
		Level:   optionalString(fields, "level"),
		Message: optionalString(fields, "message"),
	}, nil
}

func decodeRepo(eventType, topic string, data json.RawMessage) (Payload, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	return RepoActivity{
		Action: repoAction(eventType, topic),
		Repo:   optionalString(fields, "repo"),
		Title:  optionalString(fields, "title"),
		Ref:    optionalString(fields, "ref"),
		Author: optionalString(fields, "author"),
		URL:    optionalString(fields, "url"),
	}, nil
}

// repoAction is the type suffix ("repo.push" → "push"), else the last topic segment.
func repoAction(eventType, topic string) string {
	if action, ok := strings.CutPrefix(eventType, TypePrefixRepo); ok && action != "" {
		return action
	}
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

func decodeContainers(data json.RawMessage) (Payload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data is missing", ErrShape)
	}
	var containers []Container
	if err := json.Unmarshal(data, &containers); err != nil {
		return nil, fmt.Errorf("%w: container list is not an array of objects", ErrShape)
	}
	if containers == nil {
		containers = []Container{}
	}
	return ContainerSnapshot{Containers: containers}, nil
}
