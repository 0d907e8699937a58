package seeds

import "math/rand"

// Sequencer hands out stage seeds derived from a single master seed.
// Every stage of a run draws from the same Sequencer in a fixed order,
// so two runs constructed with the same master seed receive identical
// stage seeds no matter which stages are skipped.
type Sequencer struct {
	rng   *rand.Rand
	drawn []uint32
}

// New returns a Sequencer deterministically seeded with master.
func New(master int64) *Sequencer {
	return &Sequencer{rng: rand.New(rand.NewSource(master))}
}

// Draw returns the next derived seed. The value depends only on the
// master seed and how many draws preceded this one.
func (s *Sequencer) Draw() uint32 {
	seed := s.rng.Uint32()
	s.drawn = append(s.drawn, seed)
	return seed
}

// Drawn returns a copy of every seed handed out so far, in draw order.
func (s *Sequencer) Drawn() []uint32 {
	out := make([]uint32, len(s.drawn))
	copy(out, s.drawn)
	return out
}
