package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the connection lifecycle state.
type State string

// Connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Handlers receives transport signals for one connection.
type Handlers struct {
	// OnMessage is called for every inbound message, sequentially and in
	// arrival order.
	OnMessage func(topic string, payload []byte)

	// OnConnectionLost is called at most once when the connection drops.
	OnConnectionLost func(err error)
}

// Dialer opens broker connections.
type Dialer interface {
	Dial(ctx context.Context, h Handlers) (Conn, error)
}

// Conn is a live broker connection. Subscribe and Unsubscribe may block until
// the broker acknowledges.
type Conn interface {
	Subscribe(pattern string) error
	Unsubscribe(pattern string) error
	Close()
}

// PatternSource supplies the patterns to subscribe after each connect.
type PatternSource interface {
	ActivePatterns() []string
}

// MessageHandler receives messages from the current connection.
type MessageHandler func(topic string, payload []byte)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type commandOp int

const (
	opSubscribe commandOp = iota
	opUnsubscribe
)

// command is a queued transport request.
type command struct {
	op      commandOp
	pattern string
}

// lossSignal reports a dropped connection.
type lossSignal struct {
	generation uint64
	err        error
}

// Manager owns the broker connection and keeps it alive.
//
// A single loop goroutine dials, replays subscriptions, applies queued
// subscribe and unsubscribe requests and reacts to connection loss. Retries
// use a fixed interval and continue until Close.
//
// Each connection is tagged with a generation number. Messages and loss
// signals from a superseded connection are dropped.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscribe and Unsubscribe never block on the network.
type Manager struct {
	dialer        Dialer
	opts          Options
	retryInterval time.Duration

	mu        sync.Mutex
	state     State
	stateCh   chan struct{} // closed and replaced on every state change
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	listeners []func(State)
	source    PatternSource
	handler   MessageHandler
	logger    Logger
	lastErr   error

	pending []command
	wake    chan struct{}
	lost    chan lossSignal

	generation atomic.Uint64
}

// NewManager creates a disconnected manager. Call Open to start connecting.
func NewManager(dialer Dialer, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		dialer:        dialer,
		opts:          opts,
		retryInterval: opts.ReconnectInterval,
		state:         StateDisconnected,
		stateCh:       make(chan struct{}),
		logger:        noopLogger{},
		wake:          make(chan struct{}, 1),
		lost:          make(chan lossSignal, 1),
	}
}

// SetLogger sets the logger for connection events.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// SetPatternSource sets where the patterns replayed after each connect come from.
func (m *Manager) SetPatternSource(src PatternSource) {
	m.mu.Lock()
	m.source = src
	m.mu.Unlock()
}

// SetMessageHandler sets the receiver for inbound messages.
func (m *Manager) SetMessageHandler(fn MessageHandler) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// OnStateChange registers fn to be called after every state transition.
// Listeners run on the manager goroutine and must not block.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// ClientID returns the MQTT client identifier in use.
func (m *Manager) ClientID() string {
	return m.opts.ClientID
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent connection failure, or nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Open starts connecting in the background. It is a no-op while the manager
// is already connecting, connected or reconnecting. Cancelling ctx has the
// same effect as Close.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.setState(StateConnecting)
	go m.run(loopCtx, done)
	return nil
}

// Close stops the manager and disconnects. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	return nil
}

// WaitConnected blocks until the state is connected, ctx ends, or the manager
// is closed.
func (m *Manager) WaitConnected(ctx context.Context) error {
	for {
		m.mu.Lock()
		state := m.state
		running := m.running
		ch := m.stateCh
		m.mu.Unlock()

		if state == StateConnected {
			return nil
		}
		if !running {
			return ErrClosed
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("mqtt wait connected: %w", ctx.Err())
		}
	}
}

// HealthCheck reports whether the broker connection is up.
func (m *Manager) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if m.State() != StateConnected {
		return ErrNotConnected
	}
	return nil
}

// Subscribe queues a broker subscription for pattern. It returns immediately;
// the request is applied on the current connection, or on the next one.
func (m *Manager) Subscribe(pattern string) error {
	return m.enqueue(command{op: opSubscribe, pattern: pattern})
}

// Unsubscribe queues removal of a broker subscription.
func (m *Manager) Unsubscribe(pattern string) error {
	return m.enqueue(command{op: opUnsubscribe, pattern: pattern})
}

func (m *Manager) enqueue(cmd command) error {
	if cmd.pattern == "" {
		return ErrInvalidTopic
	}

	m.mu.Lock()
	m.pending = append(m.pending, cmd)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// setState records a transition and notifies listeners and waiters.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	notify := m.transitionLocked(s)
	m.mu.Unlock()
	notify()
}

// transitionLocked updates the state with m.mu held and returns the
// notification to run after unlocking.
func (m *Manager) transitionLocked(s State) func() {
	if m.state == s {
		return func() {}
	}
	prev := m.state
	m.state = s
	close(m.stateCh)
	m.stateCh = make(chan struct{})
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	logger := m.logger

	return func() {
		logger.Info("mqtt connection state changed", "from", string(prev), "to", string(s))
		for _, fn := range listeners {
			fn(s)
		}
	}
}

func (m *Manager) getLogger() Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}

func (m *Manager) setLastErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// run is the manager loop.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.running = false
		notify := m.transitionLocked(StateDisconnected)
		m.mu.Unlock()
		notify()
		close(done)
	}()

	for {
		conn, gen, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastErr(err)
			m.getLogger().Warn("mqtt connect failed",
				"broker", m.opts.BrokerURL,
				"retry_in", m.retryInterval,
				"error", err,
			)
			m.setState(StateReconnecting)
			if !m.sleep(ctx) {
				return
			}
			continue
		}

		m.setLastErr(nil)
		m.getLogger().Info("mqtt connected", "broker", m.opts.BrokerURL, "client_id", m.opts.ClientID, "generation", gen)
		m.setState(StateConnected)

		err = m.serve(ctx, conn, gen)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		m.setLastErr(err)
		m.getLogger().Warn("mqtt connection lost", "generation", gen, "error", err)
		m.setState(StateReconnecting)
		if !m.sleep(ctx) {
			return
		}
	}
}

// connect dials a new connection with its own generation.
func (m *Manager) connect(ctx context.Context) (Conn, uint64, error) {
	gen := m.generation.Add(1)

	// A stale loss signal must not end the new connection.
	select {
	case <-m.lost:
	default:
	}

	h := Handlers{
		OnMessage: func(topic string, payload []byte) {
			if m.generation.Load() != gen {
				return
			}
			m.mu.Lock()
			handler := m.handler
			m.mu.Unlock()
			if handler != nil {
				handler(topic, payload)
			}
		},
		OnConnectionLost: func(err error) {
			if m.generation.Load() != gen {
				return
			}
			select {
			case m.lost <- lossSignal{generation: gen, err: err}:
			default:
			}
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	conn, err := m.dialer.Dial(dialCtx, h)
	if err != nil {
		return nil, gen, err
	}
	return conn, gen, nil
}

// serve replays subscriptions and applies queued commands until the
// connection is lost or ctx ends.
func (m *Manager) serve(ctx context.Context, conn Conn, gen uint64) error {
	subscribed := make(map[string]bool)

	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	if source != nil {
		patterns := source.ActivePatterns()
		for _, p := range patterns {
			m.apply(conn, subscribed, command{op: opSubscribe, pattern: p})
		}
		m.getLogger().Debug("mqtt subscriptions replayed", "count", len(patterns), "generation", gen)
	}
	m.drain(conn, subscribed)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-m.lost:
			if sig.generation != gen {
				continue
			}
			if sig.err == nil {
				return ErrNotConnected
			}
			return sig.err
		case <-m.wake:
			m.drain(conn, subscribed)
		}
	}
}

// drain applies every queued command in order.
func (m *Manager) drain(conn Conn, subscribed map[string]bool) {
	m.mu.Lock()
	cmds := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, cmd := range cmds {
		m.apply(conn, subscribed, cmd)
	}
}

// apply performs one command against conn. subscribed makes it idempotent
// per connection.
func (m *Manager) apply(conn Conn, subscribed map[string]bool, cmd command) {
	switch cmd.op {
	case opSubscribe:
		if subscribed[cmd.pattern] {
			return
		}
		if err := conn.Subscribe(cmd.pattern); err != nil {
			m.getLogger().Warn("mqtt subscribe failed", "pattern", cmd.pattern, "error", err)
			return
		}
		subscribed[cmd.pattern] = true
		m.getLogger().Debug("mqtt subscribed", "pattern", cmd.pattern)

	case opUnsubscribe:
		if !subscribed[cmd.pattern] {
			return
		}
		delete(subscribed, cmd.pattern)
		if err := conn.Unsubscribe(cmd.pattern); err != nil {
			m.getLogger().Warn("mqtt unsubscribe failed", "pattern", cmd.pattern, "error", err)
			return
		}
		m.getLogger().Debug("mqtt unsubscribed", "pattern", cmd.pattern)
	}
}

// sleep waits one retry interval. It returns false if ctx ended first.
func (m *Manager) sleep(ctx context.Context) bool {
	timer := time.NewTimer(m.retryInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
