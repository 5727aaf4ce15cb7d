package contextapi

import "encoding/json"

// Repo is a repository known to the core service.
type Repo struct {
	ID            string `json:"id"`
	Org           string `json:"org"`
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
}

// Context is the repository and branch agents are currently working on.
type Context struct {
	ActiveRepoID string `json:"active_repo_id"`
	ActiveBranch string `json:"active_branch"`
	Org          string `json:"org"`
	Name         string `json:"name"`
}

// Agent is one entry in the agent registry. Config is agent-specific and
// passed through unparsed.
type Agent struct {
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Role    string          `json:"role"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// SetContextRequest is the body of POST /context.
type SetContextRequest struct {
	RepoID string `json:"repo_id"`
	Branch string `json:"branch"`
}
