package session

import (
	"testing"
)

func TestRandomSelectorEmpty(t *testing.T) {
	s := NewRandomSelector(1)
	if _, ok := s.Select(nil); ok {
		t.Error("Select(nil) should report exhaustion")
	}
	if _, ok := s.Select([]int{}); ok {
		t.Error("Select([]) should report exhaustion")
	}
}

func TestRandomSelectorReturnsMember(t *testing.T) {
	s := NewRandomSelector(7)
	remaining := []int{3, 8, 15, 42}

	for i := 0; i < 100; i++ {
		id, ok := s.Select(remaining)
		if !ok {
			t.Fatal("Select() reported exhaustion on a non-empty set")
		}
		found := false
		for _, r := range remaining {
			if r == id {
				found = true
			}
		}
		if !found {
			t.Fatalf("Select() = %d, not in %v", id, remaining)
		}
	}

	if len(remaining) != 4 || remaining[0] != 3 || remaining[3] != 42 {
		t.Errorf("Select() mutated its input: %v", remaining)
	}
}

func TestRandomSelectorSeedIsDeterministic(t *testing.T) {
	remaining := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	a := NewRandomSelector(2024)
	b := NewRandomSelector(2024)
	for i := 0; i < 50; i++ {
		x, _ := a.Select(remaining)
		y, _ := b.Select(remaining)
		if x != y {
			t.Fatalf("draw %d differs for equal seeds: %d vs %d", i, x, y)
		}
	}
}

func TestRandomSelectorCoversAllIDs(t *testing.T) {
	s := NewRandomSelector(99)
	remaining := []int{1, 2, 3}
	seen := make(map[int]bool)

	for i := 0; i < 300; i++ {
		id, _ := s.Select(remaining)
		seen[id] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected every id to be drawn at least once, saw %v", seen)
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	b, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	if a == b {
		t.Errorf("two seeds were equal: %d", a)
	}
}
