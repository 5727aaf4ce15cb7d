package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/catalyst-dashboard/internal/bus"
	"github.com/nerrad567/catalyst-dashboard/internal/contextapi"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/config"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/logging"
	"github.com/nerrad567/catalyst-dashboard/internal/infrastructure/mqtt"
	"github.com/nerrad567/catalyst-dashboard/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EventSource registers handlers on topic patterns. *bus.Registry implements it.
type EventSource interface {
	Subscribe(pattern string, handler bus.Handler) (*bus.Subscription, error)
	ActivePatterns() []string
	Count() int
}

// Connection exposes the broker connection state. *mqtt.Manager implements it.
type Connection interface {
	State() mqtt.State
	LastError() error
	ClientID() string
	OnStateChange(fn func(mqtt.State))
}

// ContextService is the REST collaborator. *contextapi.Client implements it.
type ContextService interface {
	GetRepos(ctx context.Context) ([]contextapi.Repo, error)
	GetContext(ctx context.Context) (*contextapi.Context, error)
	SetContext(ctx context.Context, repoID, branch string) error
	GetAgents(ctx context.Context) ([]contextapi.Agent, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Dashboard  *telemetry.Dashboard
	Events     EventSource
	Connection Connection     // optional: /status reports "unknown" without it
	Context    ContextService // optional: context endpoints answer 503 without it
	Version    string
}

// Server is the dashboard's HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	dashboard  *telemetry.Dashboard
	events     EventSource
	connection Connection
	contextAPI ContextService
	version    string
	startTime  time.Time
	server     *http.Server
	listener   net.Listener
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event source is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		dashboard:  deps.Dashboard,
		events:     deps.Events,
		connection: deps.Connection,
		contextAPI: deps.Context,
		version:    deps.Version,
		startTime:  time.Now(),
	}
	s.hub = NewHub(s.wsCfg, s.logger, s.events)

	if s.connection != nil {
		s.connection.OnStateChange(func(_ mqtt.State) {
			s.hub.BroadcastStatus(s.connectionStatus())
		})
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, binds the listener synchronously so address
// errors are returned, and serves in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
