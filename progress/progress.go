// Package progress produces the simulated progress values that drive a running step.
//
// The values are visual feedback only: they do not measure any real work.
package progress

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Max is the progress value at which a step completes
const Max = 100

// Simulator returns the next progress value for a running step
type Simulator interface {
	Next(current int) int
}

// Advance adds inc to current and clamps the result to [0, Max]
func Advance(current, inc int) int {
	next := current + inc
	if next > Max {
		return Max
	}
	if next < 0 {
		return 0
	}
	return next
}

// MaxTicks is the number of ticks after which a step driven with
// increments of at least minIncrement is guaranteed to reach Max
func MaxTicks(minIncrement int) int {
	if minIncrement <= 0 {
		return 0
	}
	return (Max + minIncrement - 1) / minIncrement
}

// ValidateBounds checks an increment range
func ValidateBounds(minIncrement, maxIncrement int) error {
	if minIncrement < 1 {
		return fmt.Errorf("min increment must be at least 1, got %d", minIncrement)
	}
	if maxIncrement < minIncrement {
		return fmt.Errorf("max increment %d is lower than min increment %d", maxIncrement, minIncrement)
	}
	if maxIncrement > Max {
		return fmt.Errorf("max increment must be at most %d, got %d", Max, maxIncrement)
	}
	return nil
}

// Random draws each increment uniformly from [min, max]
type Random struct {
	min, max int
	mu       sync.Mutex
	rnd      *rand.Rand
}

// NewRandom creates a Random simulator. A zero seed picks a random one.
func NewRandom(minIncrement, maxIncrement int, seed uint64) (*Random, error) {
	if err := ValidateBounds(minIncrement, maxIncrement); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Random{
		min: minIncrement,
		max: maxIncrement,
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

func (r *Random) Next(current int) int {
	r.mu.Lock()
	inc := r.min + r.rnd.IntN(r.max-r.min+1)
	r.mu.Unlock()
	return Advance(current, inc)
}

// Sequence replays a fixed list of increments, cycling when exhausted.
// It is the deterministic stand-in for Random in tests.
type Sequence struct {
	mu   sync.Mutex
	incs []int
	pos  int
}

// NewSequence creates a Sequence. With no increments every tick completes the step.
func NewSequence(increments ...int) *Sequence {
	return &Sequence{incs: increments}
}

func (s *Sequence) Next(current int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.incs) == 0 {
		return Max
	}
	inc := s.incs[s.pos%len(s.incs)]
	s.pos++
	return Advance(current, inc)
}
