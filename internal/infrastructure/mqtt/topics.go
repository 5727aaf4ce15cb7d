package mqtt

import "fmt"

// Topic prefixes for the dashboard's topic families.
const (
	// TopicPrefixSensor is the base for telemetry: sensor/{domain}/{metric}.
	TopicPrefixSensor = "sensor"

	// TopicPrefixAgent is the base for agent activity: agent/{name}/log.
	TopicPrefixAgent = "agent"

	// TopicPrefixRepo is the base for repository events: repo/{name}/{event}.
	TopicPrefixRepo = "repo"

	// TopicContainerState carries the full container list.
	TopicContainerState = "infra/docker/state"
)

// Topics provides builders for dashboard topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.Sensor("cpu", "temp")
//	// Returns: "sensor/cpu/temp"
type Topics struct{}

// =============================================================================
// Concrete Topics
// =============================================================================

// Sensor returns the topic for one metric.
//
// Example: sensor/cpu/temp
func (Topics) Sensor(domain, metric string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixSensor, domain, metric)
}

// AgentLog returns the activity topic for an agent.
//
// Example: agent/TrendScout/log
func (Topics) AgentLog(agent string) string {
	return fmt.Sprintf("%s/%s/log", TopicPrefixAgent, agent)
}

// RepoEvent returns the event topic for a repository.
//
// Example: repo/catalyst/event
func (Topics) RepoEvent(repo string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixRepo, repo)
}

// ContainerState returns the container snapshot topic.
//
// Example: infra/docker/state
func (Topics) ContainerState() string {
	return TopicContainerState
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllSensors returns a pattern matching every sensor metric.
//
// Pattern: sensor/+/+
func (Topics) AllSensors() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixSensor)
}

// AllAgentLogs returns a pattern matching every agent's activity log.
//
// Pattern: agent/+/log
func (Topics) AllAgentLogs() string {
	return fmt.Sprintf("%s/+/log", TopicPrefixAgent)
}

// AllRepoEvents returns a pattern matching every repository event.
//
// Pattern: repo/#
func (Topics) AllRepoEvents() string {
	return fmt.Sprintf("%s/#", TopicPrefixRepo)
}

// AllTopics returns a pattern matching everything on the broker.
// Use with caution - this receives ALL traffic.
//
// Pattern: #
func (Topics) AllTopics() string {
	return "#"
}
