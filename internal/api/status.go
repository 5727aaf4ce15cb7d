package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus represents the complete /status response.
type SystemStatus struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Connection    ConnectionStatus `json:"connection"`
	Subscriptions SubscriptionInfo `json:"subscriptions"`
	WebSocket     WSMetrics        `json:"websocket"`
	Stores        StoreMetrics     `json:"stores"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ConnectionStatus describes the broker connection.
type ConnectionStatus struct {
	State     string `json:"state"`
	ClientID  string `json:"client_id,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// SubscriptionInfo describes the bus subscriptions.
type SubscriptionInfo struct {
	Patterns []string `json:"patterns"`
	Handlers int      `json:"handlers"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// StoreMetrics contains aggregate store sizes.
type StoreMetrics struct {
	Sensors    int `json:"sensors"`
	AgentLogs  int `json:"agent_logs"`
	RepoEvents int `json:"repo_events"`
	Containers int `json:"containers"`
}

// connectionStatus snapshots the broker connection.
func (s *Server) connectionStatus() ConnectionStatus {
	if s.connection == nil {
		return ConnectionStatus{State: "unknown"}
	}

	status := ConnectionStatus{
		State:    string(s.connection.State()),
		ClientID: s.connection.ClientID(),
	}
	if err := s.connection.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// handleStatus returns connection, subscription, hub and store statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	containers, _ := s.dashboard.Containers.Snapshot()

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Connection: s.connectionStatus(),
		Subscriptions: SubscriptionInfo{
			Patterns: s.events.ActivePatterns(),
			Handlers: s.events.Count(),
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Stores: StoreMetrics{
			Sensors:    s.dashboard.Sensors.Len(),
			AgentLogs:  s.dashboard.Agents.Len(),
			RepoEvents: s.dashboard.Repos.Len(),
			Containers: len(containers),
		},
	}

	writeJSON(w, http.StatusOK, status)
}
