// Package shortcode produces candidate short codes.
package shortcode

import (
	"math/rand/v2"
	"sync"
)

// Alphabet is the set of characters generated codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the length of generated codes when none is configured.
const DefaultLength = 6

// Generator produces candidate codes. Candidates are not checked for
// availability; the store's unique index decides that.
type Generator interface {
	Generate(length int) string
}

// Random draws codes uniformly from Alphabet. The randomness only keeps
// collisions rare, it is not meant to make codes unguessable.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a generator backed by the runtime's random source.
func NewRandom() *Random {
	return &Random{}
}

// NewSeeded returns a generator that yields the same sequence for the same seed.
func NewSeeded(seed uint64) *Random {
	return &Random{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns a code of the given length.
func (g *Random) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	b := make([]byte, length)
	if g.rnd == nil {
		for i := range b {
			b[i] = Alphabet[rand.IntN(len(Alphabet))]
		}
		return string(b)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range b {
		b[i] = Alphabet[g.rnd.IntN(len(Alphabet))]
	}
	return string(b)
}

// Sequence replays a fixed list of codes, cycling when exhausted.
// It is meant for tests that need to force collisions.
type Sequence struct {
	mu    sync.Mutex
	codes []string
	calls int
}

// NewSequence returns a generator that yields codes in order.
func NewSequence(codes ...string) *Sequence {
	return &Sequence{codes: codes}
}

// Generate ignores length and returns the next code in the sequence.
func (s *Sequence) Generate(int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[s.calls%len(s.codes)]
	s.calls++
	return code
}

// Calls reports how many codes have been generated.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
