package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/catalyst-dashboard/internal/bus"
)

// SensorListResponse is the body of GET /sensors.
type SensorListResponse struct {
	Sensors any `json:"sensors"`
	Count   int `json:"count"`
}

// ContainersResponse is the body of GET /containers.
type ContainersResponse struct {
	Containers []bus.Container `json:"containers"`
	Running    int             `json:"running"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// handleListSensors returns every discovered sensor, sorted by id.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := s.dashboard.Sensors.List()
	writeJSON(w, http.StatusOK, SensorListResponse{
		Sensors: sensors,
		Count:   len(sensors),
	})
}

// handleGetSensor returns one sensor. Sensor ids are topics and contain
// slashes, so the id is the rest of the path.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if id == "" {
		writeBadRequest(w, "sensor id is required")
		return
	}

	sensor, ok := s.dashboard.Sensors.Get(id)
	if !ok {
		writeNotFound(w, "sensor not found")
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

// handleAgentActivity returns recent agent log lines, oldest first.
// ?limit=N keeps only the newest N.
func (s *Server) handleAgentActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	entries := s.dashboard.Agents.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleRepoEvents returns recent repository events, newest first.
// ?limit=N keeps only the newest N.
func (s *Server) handleRepoEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events := s.dashboard.Repos.Events()
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleContainers returns the latest container snapshot.
func (s *Server) handleContainers(w http.ResponseWriter, _ *http.Request) {
	containers, updatedAt := s.dashboard.Containers.Snapshot()

	resp := ContainersResponse{
		Containers: containers,
		Running:    s.dashboard.Containers.Running(),
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseLimit reads the optional ?limit query parameter. It writes a 400 and
// returns false when the value is not a non-negative integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
