package session

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Selector picks the next card to draw from the unread ids.
// remaining is sorted ascending and must not be modified.
type Selector interface {
	Select(remaining []int) (int, bool)
}

// SelectorFunc adapts a function to the Selector interface
type SelectorFunc func(remaining []int) (int, bool)

// Select calls f(remaining)
func (f SelectorFunc) Select(remaining []int) (int, bool) {
	return f(remaining)
}

// RandomSelector draws uniformly at random. It is not safe for concurrent use.
type RandomSelector struct {
	rng *rand.Rand
}

// NewSelector creates a selector over an existing random source
func NewSelector(rng *rand.Rand) *RandomSelector {
	return &RandomSelector{rng: rng}
}

// NewRandomSelector creates a selector whose draw sequence is fixed by seed
func NewRandomSelector(seed int64) *RandomSelector {
	return NewSelector(rand.New(rand.NewSource(seed)))
}

// Select returns one element of remaining, or false when nothing is left
func (s *RandomSelector) Select(remaining []int) (int, bool) {
	if len(remaining) == 0 {
		return 0, false
	}
	return remaining[s.rng.Intn(len(remaining))], true
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
