package telemetry

// Order controls how Ring.Items returns entries.
type Order int

const (
	// OldestFirst returns entries in arrival order.
	OldestFirst Order = iota

	// NewestFirst returns the most recent entry first.
	NewestFirst
)

// Ring is a fixed-capacity buffer that evicts its oldest entry when full.
// It is not safe for concurrent use; stores guard it with their own lock.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest entry
	size  int
	order Order
}

// NewRing creates a ring holding at most capacity entries (minimum 1).
func NewRing[T any](capacity int, order Order) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf:   make([]T, capacity),
		order: order,
	}
}

// Append adds item, evicting the oldest entry if the ring is full.
func (r *Ring[T]) Append(item T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = item
		r.size++
		return
	}
	r.buf[r.head] = item
	r.head = (r.head + 1) % len(r.buf)
}

// Items returns a copy of the entries in the ring's order.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	if r.order == NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Len returns the number of entries.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the maximum number of entries.
func (r *Ring[T]) Cap() int { return len(r.buf) }
