package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/catalyst-dashboard/internal/contextapi"
)

// contextUnavailable answers 503 when no context service is configured.
func (s *Server) contextUnavailable(w http.ResponseWriter) bool {
	if s.contextAPI == nil {
		writeUnavailable(w, "context api not configured")
		return true
	}
	return false
}

// upstreamFailed logs a context API error and answers 502.
func (s *Server) upstreamFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Warn("context api request failed",
		"operation", op,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeBadGateway(w, "context api: "+op+" failed")
}

// handleListRepos proxies GET /repos.
func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	if s.contextUnavailable(w) {
		return
	}

	repos, err := s.contextAPI.GetRepos(r.Context())
	if err != nil {
		s.upstreamFailed(w, r, "list repos", err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// handleGetContext proxies GET /context.
func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	if s.contextUnavailable(w) {
		return
	}

	current, err := s.contextAPI.GetContext(r.Context())
	if err != nil {
		s.upstreamFailed(w, r, "get context", err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// handleSetContext proxies POST /context.
func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	if s.contextUnavailable(w) {
		return
	}

	var req contextapi.SetContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RepoID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "repo_id is required")
		return
	}

	if err := s.contextAPI.SetContext(r.Context(), req.RepoID, req.Branch); err != nil {
		s.upstreamFailed(w, r, "set context", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"repo_id": req.RepoID,
		"branch":  req.Branch,
	})
}

// handleListAgents proxies GET /agents.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if s.contextUnavailable(w) {
		return
	}

	agents, err := s.contextAPI.GetAgents(r.Context())
	if err != nil {
		s.upstreamFailed(w, r, "list agents", err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}
