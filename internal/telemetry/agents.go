package telemetry

import (
	"sync"
	"time"
)

// DefaultAgentLogCapacity is the number of agent log entries kept.
const DefaultAgentLogCapacity = 50

// UnknownAgent names entries whose producer did not identify itself.
const UnknownAgent = "Unknown"

// Variant is the display style of an agent's log entries.
type Variant string

// Known agent variants.
const (
	VariantScout   Variant = "scout"
	VariantAnalyst Variant = "analyst"
	VariantRunner  Variant = "runner"
	VariantDefault Variant = "default"
)

var agentVariants = map[string]Variant{
	"TrendScout": VariantScout,
	"GapAnalyst": VariantAnalyst,
	"CodeRunner": VariantRunner,
}

// VariantFor returns the display variant for an agent name.
func VariantFor(agent string) Variant {
	if v, ok := agentVariants[agent]; ok {
		return v
	}
	return VariantDefault
}

// AgentLogEntry is one line of agent activity.
type AgentLogEntry struct {
	ID      string    `json:"id"`
	Agent   string    `json:"agent"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Variant Variant   `json:"variant"`
}

// AgentActivity keeps the most recent agent log lines, oldest first.
//
// All public methods are thread-safe.
type AgentActivity struct {
	entries *Ring[AgentLogEntry]
	mu      sync.RWMutex
}

// NewAgentActivity creates a log holding capacity entries.
// A non-positive capacity uses DefaultAgentLogCapacity.
func NewAgentActivity(capacity int) *AgentActivity {
	if capacity < 1 {
		capacity = DefaultAgentLogCapacity
	}
	return &AgentActivity{entries: NewRing[AgentLogEntry](capacity, OldestFirst)}
}

// Append records an entry. An empty agent becomes UnknownAgent and the variant
// is derived from the agent name.
func (a *AgentActivity) Append(entry AgentLogEntry) AgentLogEntry {
	if entry.Agent == "" {
		entry.Agent = UnknownAgent
	}
	entry.Variant = VariantFor(entry.Agent)

	a.mu.Lock()
	a.entries.Append(entry)
	a.mu.Unlock()
	return entry
}

// Entries returns a copy of the log, oldest first.
func (a *AgentActivity) Entries() []AgentLogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entries.Items()
}

// Len returns the number of entries.
func (a *AgentActivity) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entries.Len()
}
