package telemetry

import (
	"sync"
	"time"
)

// DefaultRepoEventCapacity is the number of repository events kept.
const DefaultRepoEventCapacity = 50

// RepoEvent is one entry in the repository feed.
type RepoEvent struct {
	ID     string    `json:"id"`
	Repo   string    `json:"repo"`
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Ref    string    `json:"ref,omitempty"`
	Author string    `json:"author,omitempty"`
	URL    string    `json:"url,omitempty"`
	Time   time.Time `json:"time"`
}

// RepoFeed keeps the most recent repository events, newest first.
//
// All public methods are thread-safe.
type RepoFeed struct {
	events *Ring[RepoEvent]
	mu     sync.RWMutex
}

// NewRepoFeed creates a feed holding capacity events.
func NewRepoFeed(capacity int) *RepoFeed {
	if capacity < 1 {
		capacity = DefaultRepoEventCapacity
	}
	return &RepoFeed{events: NewRing[RepoEvent](capacity, NewestFirst)}
}

// Append records an event.
func (f *RepoFeed) Append(ev RepoEvent) {
	f.mu.Lock()
	f.events.Append(ev)
	f.mu.Unlock()
}

// Events returns a copy of the feed, newest first.
func (f *RepoFeed) Events() []RepoEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.events.Items()
}

// Len returns the number of events.
func (f *RepoFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.events.Len()
}
