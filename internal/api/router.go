package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Aggregate state
		r.Get("/sensors", s.handleListSensors)
		r.Get("/sensors/*", s.handleGetSensor)
		r.Get("/agents/activity", s.handleAgentActivity)
		r.Get("/repo/events", s.handleRepoEvents)
		r.Get("/containers", s.handleContainers)

		// Context API pass-through
		r.Get("/repos", s.handleListRepos)
		r.Route("/context", func(r chi.Router) {
			r.Get("/", s.handleGetContext)
			r.Post("/", s.handleSetContext)
		})
		r.Get("/agents", s.handleListAgents)

		// Live relay
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
