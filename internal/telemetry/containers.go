package telemetry

import (
	"sync"
	"time"

	"github.com/nerrad567/catalyst-dashboard/internal/bus"
)

// ContainerBoard holds the latest container list.
//
// All public methods are thread-safe.
type ContainerBoard struct {
	containers []bus.Container
	updatedAt  time.Time
	mu         sync.RWMutex
}

// NewContainerBoard creates an empty board.
func NewContainerBoard() *ContainerBoard {
	return &ContainerBoard{containers: []bus.Container{}}
}

// Replace swaps in a new snapshot taken at at.
func (b *ContainerBoard) Replace(containers []bus.Container, at time.Time) {
	next := make([]bus.Container, len(containers))
	copy(next, containers)

	b.mu.Lock()
	b.containers = next
	b.updatedAt = at
	b.mu.Unlock()
}

// Snapshot returns a copy of the latest list and when it was taken.
// The time is zero before the first snapshot.
func (b *ContainerBoard) Snapshot() ([]bus.Container, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]bus.Container, len(b.containers))
	copy(out, b.containers)
	return out, b.updatedAt
}

// Running returns how many containers report state "running".
func (b *ContainerBoard) Running() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, c := range b.containers {
		if c.State == "running" {
			n++
		}
	}
	return n
}
