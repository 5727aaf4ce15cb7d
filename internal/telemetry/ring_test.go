package telemetry

import (
	"reflect"
	"testing"
)

func TestRingOldestFirst(t *testing.T) {
	r := NewRing[int](3, OldestFirst)
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}

	if got, want := r.Items(), []int{3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if r.Len() != 3 || r.Cap() != 3 {
		t.Errorf("Len()/Cap() = %d/%d, want 3/3", r.Len(), r.Cap())
	}
}

func TestRingNewestFirst(t *testing.T) {
	r := NewRing[string](3, NewestFirst)
	r.Append("a")
	r.Append("b")

	if got, want := r.Items(), []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}

	r.Append("c")
	r.Append("d")
	if got, want := r.Items(), []string{"d", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
}

func TestRingNeverExceedsCap(t *testing.T) {
	r := NewRing[int](50, OldestFirst)
	for i := 0; i < 60; i++ {
		r.Append(i)
		if r.Len() > 50 {
			t.Fatalf("Len() = %d after %d appends", r.Len(), i+1)
		}
	}

	items := r.Items()
	if items[0] != 10 || items[49] != 59 {
		t.Errorf("Items() spans %d..%d, want 10..59", items[0], items[49])
	}
}

func TestRingItemsIsCopy(t *testing.T) {
	r := NewRing[int](2, OldestFirst)
	r.Append(1)

	items := r.Items()
	items[0] = 99

	if got := r.Items()[0]; got != 1 {
		t.Errorf("ring mutated through snapshot, got %d", got)
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[int](0, OldestFirst)
	if r.Cap() != 1 {
		t.Fatalf("Cap() = %d, want 1", r.Cap())
	}
	r.Append(1)
	r.Append(2)
	if got := r.Items(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Items() = %v, want [2]", got)
	}
}
