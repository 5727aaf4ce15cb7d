package contextapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultTimeout bounds each request when no timeout is configured.
	defaultTimeout = 5 * time.Second

	// maxErrorBody limits how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// Client calls the core service's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetRepos lists the repositories.
func (c *Client) GetRepos(ctx context.Context) ([]Repo, error) {
	var repos []Repo
	if err := c.do(ctx, http.MethodGet, "/repos", nil, &repos); err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []Repo{}
	}
	return repos, nil
}

// GetContext returns the active repository and branch.
func (c *Client) GetContext(ctx context.Context) (*Context, error) {
	var out Context
	if err := c.do(ctx, http.MethodGet, "/context", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetContext switches the active repository and branch.
func (c *Client) SetContext(ctx context.Context, repoID, branch string) error {
	if repoID == "" {
		return fmt.Errorf("%w: repo id is required", ErrInvalidArgument)
	}
	return c.do(ctx, http.MethodPost, "/context", SetContextRequest{RepoID: repoID, Branch: branch}, nil)
}

// GetAgents lists the registered agents.
func (c *Client) GetAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []Agent{}
	}
	return agents, nil
}

// HealthCheck verifies the service answers GET /repos.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/repos", nil, nil)
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded from
// a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort error body
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
