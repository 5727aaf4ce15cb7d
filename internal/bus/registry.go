package bus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/catalyst-dashboard/internal/topic"
)

// Handler consumes a dispatched event. A returned error is logged and does not
// affect other handlers.
type Handler func(ev Event) error

// Transport manages broker-side subscriptions for the registry.
//
// Implementations must not block on the network: the registry calls them while
// holding its lock so that subscribe and unsubscribe requests reach the
// transport in the order they were made.
type Transport interface {
	Subscribe(pattern string) error
	Unsubscribe(pattern string) error
}

// Subscription is one handler registered on one pattern.
type Subscription struct {
	id        string
	pattern   topic.Pattern
	handler   Handler
	registry  *Registry
	cancelled atomic.Bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the pattern the subscription was registered with.
func (s *Subscription) Pattern() string { return s.pattern.String() }

// Active reports whether Cancel has not yet been called.
func (s *Subscription) Active() bool { return !s.cancelled.Load() }

// Cancel removes the subscription. Safe to call more than once and from inside
// a handler. No event dispatched after Cancel returns reaches the handler.
func (s *Subscription) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.registry.remove(s)
}

// patternEntry holds all subscriptions sharing one pattern.
// subs is replaced, never mutated, so snapshots stay valid.
type patternEntry struct {
	pattern topic.Pattern
	subs    []*Subscription
}

// Registry tracks active subscriptions and keeps exactly one transport
// subscription per distinct pattern.
//
// All public methods are thread-safe.
type Registry struct {
	transport Transport
	entries   map[string]*patternEntry
	order     []string // patterns in first-registration order
	mu        sync.RWMutex
	logger    Logger
}

// NewRegistry creates a registry. transport may be nil, in which case
// subscriptions are tracked locally only.
func NewRegistry(transport Transport) *Registry {
	return &Registry{
		transport: transport,
		entries:   make(map[string]*patternEntry),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Subscribe registers handler for every topic matching pattern.
//
// The first registration on a pattern subscribes at the transport. A transport
// failure is logged and the registration is kept; the connection manager
// replays active patterns on its next connect.
func (r *Registry) Subscribe(pattern string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	compiled, err := topic.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	sub := &Subscription{
		id:       uuid.NewString(),
		pattern:  compiled,
		handler:  handler,
		registry: r,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := compiled.String()
	entry, ok := r.entries[key]
	if ok {
		subs := make([]*Subscription, len(entry.subs), len(entry.subs)+1)
		copy(subs, entry.subs)
		entry.subs = append(subs, sub)
		r.logger.Debug("subscription added", "pattern", key, "id", sub.id, "handlers", len(entry.subs))
		return sub, nil
	}

	r.entries[key] = &patternEntry{pattern: compiled, subs: []*Subscription{sub}}
	r.order = append(r.order, key)
	r.logger.Debug("subscription added", "pattern", key, "id", sub.id, "handlers", 1)

	if r.transport != nil {
		if err := r.transport.Subscribe(key); err != nil {
			r.logger.Warn("transport subscribe failed", "pattern", key, "error", err)
		}
	}

	return sub, nil
}

// Unsubscribe cancels sub. Equivalent to sub.Cancel().
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Cancel()
}

// remove detaches a cancelled subscription and releases the transport
// subscription when it was the last one on its pattern.
func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sub.pattern.String()
	entry, ok := r.entries[key]
	if !ok {
		return
	}

	subs := make([]*Subscription, 0, len(entry.subs))
	for _, s := range entry.subs {
		if s != sub {
			subs = append(subs, s)
		}
	}
	if len(subs) == len(entry.subs) {
		return
	}
	r.logger.Debug("subscription removed", "pattern", key, "id", sub.id, "handlers", len(subs))

	if len(subs) > 0 {
		entry.subs = subs
		return
	}

	delete(r.entries, key)
	for i, p := range r.order {
		if p == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}

	if r.transport != nil {
		if err := r.transport.Unsubscribe(key); err != nil {
			r.logger.Warn("transport unsubscribe failed", "pattern", key, "error", err)
		}
	}
}

// Match returns the active subscriptions whose pattern matches topicName,
// grouped by pattern in first-registration order and in registration order
// within a pattern. The returned slice is a snapshot.
func (r *Registry) Match(topicName string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Subscription
	for _, key := range r.order {
		entry := r.entries[key]
		if entry.pattern.Match(topicName) {
			matched = append(matched, entry.subs...)
		}
	}
	return matched
}

// ActivePatterns returns every pattern with at least one active subscription,
// in first-registration order.
func (r *Registry) ActivePatterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := make([]string, len(r.order))
	copy(patterns, r.order)
	return patterns
}

// Count returns the number of active subscriptions across all patterns.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entry := range r.entries {
		n += len(entry.subs)
	}
	return n
}
