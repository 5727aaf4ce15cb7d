package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/catalyst-dashboard/internal/bus"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/config"
)

// Subscriber registers handlers on topic patterns. *bus.Registry implements it.
type Subscriber interface {
	Subscribe(pattern string, handler bus.Handler) (*bus.Subscription, error)
}

// Logger defines the logging interface used by the Dashboard.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config sets the patterns each store listens on and the store caps.
// An empty pattern leaves that store unattached.
type Config struct {
	SensorPattern    string
	AgentLogPattern  string
	RepoEventPattern string
	ContainerPattern string

	SensorHistory int
	AgentLogs     int
	RepoEvents    int
}

// ConfigFrom builds a dashboard Config from application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SensorPattern:    cfg.Subscriptions.Sensors,
		AgentLogPattern:  cfg.Subscriptions.AgentLogs,
		RepoEventPattern: cfg.Subscriptions.RepoEvents,
		ContainerPattern: cfg.Subscriptions.Containers,
		SensorHistory:    cfg.Buffers.SensorHistory,
		AgentLogs:        cfg.Buffers.AgentLogs,
		RepoEvents:       cfg.Buffers.RepoEvents,
	}
}

// Dashboard bundles the aggregate stores and keeps them fed from the bus.
type Dashboard struct {
	Sensors    *SensorStore
	Agents     *AgentActivity
	Repos      *RepoFeed
	Containers *ContainerBoard

	cfg    Config
	now    func() time.Time
	logger Logger

	mu   sync.Mutex
	subs []*bus.Subscription
}

// NewDashboard creates empty stores sized by cfg.
func NewDashboard(cfg Config) *Dashboard {
	return &Dashboard{
		Sensors:    NewSensorStore(cfg.SensorHistory),
		Agents:     NewAgentActivity(cfg.AgentLogs),
		Repos:      NewRepoFeed(cfg.RepoEvents),
		Containers: NewContainerBoard(),
		cfg:        cfg,
		now:        time.Now,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the dashboard.
func (d *Dashboard) SetLogger(logger Logger) {
	d.logger = logger
}

// Attach subscribes every store to its configured pattern. On failure any
// subscriptions already made are cancelled.
func (d *Dashboard) Attach(s Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.subs) > 0 {
		return errors.New("telemetry: dashboard already attached")
	}

	bindings := []struct {
		pattern string
		handler bus.Handler
	}{
		{d.cfg.SensorPattern, d.handleSensor},
		{d.cfg.AgentLogPattern, d.handleAgentLog},
		{d.cfg.RepoEventPattern, d.handleRepoEvent},
		{d.cfg.ContainerPattern, d.handleContainers},
	}

	for _, b := range bindings {
		if b.pattern == "" {
			continue
		}
		sub, err := s.Subscribe(b.pattern, b.handler)
		if err != nil {
			for _, prev := range d.subs {
				prev.Cancel()
			}
			d.subs = nil
			return fmt.Errorf("attaching %q: %w", b.pattern, err)
		}
		d.subs = append(d.subs, sub)
	}

	d.logger.Info("dashboard stores attached", "subscriptions", len(d.subs))
	return nil
}

// Detach cancels the dashboard's subscriptions. Stored state is kept.
func (d *Dashboard) Detach() {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// shapeError reports why a payload was not the expected variant. Untyped
// payloads from unrelated producers are ignored silently.
func shapeError(p bus.Payload) error {
	if u, ok := p.(bus.Unknown); ok {
		return u.Err
	}
	return nil
}

func (d *Dashboard) handleSensor(ev bus.Event) error {
	reading, ok := ev.Payload.(bus.SensorReading)
	if !ok {
		return shapeError(ev.Payload)
	}

	id := ev.Topic
	if id == "" {
		id = ev.Type
	}
	if !d.Sensors.UpsertAt(id, reading.Value, reading.Unit, reading.Label, ev.TimeOr(d.now())) {
		return fmt.Errorf("sensor %q: reading %v rejected", id, reading.Value)
	}
	return nil
}

func (d *Dashboard) handleAgentLog(ev bus.Event) error {
	entry, ok := ev.Payload.(bus.AgentLog)
	if !ok {
		return shapeError(ev.Payload)
	}

	d.Agents.Append(AgentLogEntry{
		ID:      ev.ID,
		Agent:   entry.Agent,
		Level:   entry.Level,
		Message: entry.Message,
		Time:    ev.TimeOr(d.now()),
	})
	return nil
}

func (d *Dashboard) handleRepoEvent(ev bus.Event) error {
	activity, ok := ev.Payload.(bus.RepoActivity)
	if !ok {
		return shapeError(ev.Payload)
	}

	d.Repos.Append(RepoEvent{
		ID:     ev.ID,
		Repo:   activity.Repo,
		Kind:   activity.Action,
		Title:  activity.Title,
		Ref:    activity.Ref,
		Author: activity.Author,
		URL:    activity.URL,
		Time:   ev.TimeOr(d.now()),
	})
	return nil
}

func (d *Dashboard) handleContainers(ev bus.Event) error {
	snap, ok := ev.Payload.(bus.ContainerSnapshot)
	if !ok {
		return shapeError(ev.Payload)
	}

	d.Containers.Replace(snap.Containers, ev.TimeOr(d.now()))
	return nil
}
