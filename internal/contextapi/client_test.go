package contextapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer serves the given handler under /api.
func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", handler))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", time.Second)
}

// =============================================================================
// Read Tests
// =============================================================================

func TestGetRepos(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/repos" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"r1","org":"nerrad567","name":"catalyst","default_branch":"main"}]`))
	})

	repos, err := client.GetRepos(context.Background())
	if err != nil {
		t.Fatalf("GetRepos() error = %v", err)
	}
	if len(repos) != 1 || repos[0].DefaultBranch != "main" || repos[0].Org != "nerrad567" {
		t.Errorf("GetRepos() = %+v", repos)
	}
}

func TestGetReposNullBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	repos, err := client.GetRepos(context.Background())
	if err != nil {
		t.Fatalf("GetRepos() error = %v", err)
	}
	if repos == nil || len(repos) != 0 {
		t.Errorf("GetRepos() = %#v, want empty slice", repos)
	}
}

func TestGetContext(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active_repo_id":"r1","active_branch":"dev","org":"nerrad567","name":"catalyst"}`))
	})

	got, err := client.GetContext(context.Background())
	if err != nil {
		t.Fatalf("GetContext() error = %v", err)
	}
	if got.ActiveRepoID != "r1" || got.ActiveBranch != "dev" {
		t.Errorf("GetContext() = %+v", got)
	}
}

func TestGetAgentsKeepsRawConfig(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a1","service":"scout","role":"TrendScout","config":{"interval":"5m"}}]`))
	})

	agents, err := client.GetAgents(context.Background())
	if err != nil {
		t.Fatalf("GetAgents() error = %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("len(agents) = %d, want 1", len(agents))
	}

	var cfg map[string]string
	if err := json.Unmarshal(agents[0].Config, &cfg); err != nil || cfg["interval"] != "5m" {
		t.Errorf("Config = %s, err = %v", agents[0].Config, err)
	}
}

// =============================================================================
// SetContext Tests
// =============================================================================

func TestSetContext(t *testing.T) {
	var got SetContextRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/context" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.SetContext(context.Background(), "r1", "feature/x"); err != nil {
		t.Fatalf("SetContext() error = %v", err)
	}
	if got.RepoID != "r1" || got.Branch != "feature/x" {
		t.Errorf("body = %+v", got)
	}
}

func TestSetContextRequiresRepo(t *testing.T) {
	client := New("http://127.0.0.1:1", time.Second)
	if err := client.SetContext(context.Background(), "", "main"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetContext() error = %v, want ErrInvalidArgument", err)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestNon2xxIsRequestFailed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		call   func(*Client) error
	}{
		{"repos 500", http.StatusInternalServerError, "boom", func(c *Client) error {
			_, err := c.GetRepos(context.Background())
			return err
		}},
		{"context 404", http.StatusNotFound, "", func(c *Client) error {
			_, err := c.GetContext(context.Background())
			return err
		}},
		{"set context 400", http.StatusBadRequest, "unknown repo", func(c *Client) error {
			return c.SetContext(context.Background(), "nope", "main")
		}},
		{"agents 503", http.StatusServiceUnavailable, "", func(c *Client) error {
			_, err := c.GetAgents(context.Background())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := tt.call(client)
			if !errors.Is(err, ErrRequestFailed) {
				t.Fatalf("error = %v, want ErrRequestFailed", err)
			}
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %T, want *StatusError", err)
			}
			if se.StatusCode != tt.status || se.Body != tt.body {
				t.Errorf("StatusError = %+v", se)
			}
		})
	}
}

func TestUnreachableIsRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(url, time.Second)
	if _, err := client.GetRepos(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("GetRepos() error = %v, want ErrRequestFailed", err)
	}
}

func TestContextCancelled(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetRepos(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("GetRepos() error = %v, want context.Canceled", err)
	}
}

func TestBaseURLTrimmed(t *testing.T) {
	if got := New("http://localhost:8080/api/", 0).BaseURL(); got != "http://localhost:8080/api" {
		t.Errorf("BaseURL() = %q", got)
	}
}
