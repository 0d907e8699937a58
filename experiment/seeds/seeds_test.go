package seeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Draw(), b.Draw(), "draw %d diverged", i)
	}
}

func TestDrawDependsOnMasterSeed(t *testing.T) {
	a := New(1)
	b := New(2)

	var same int
	for i := 0; i < 10; i++ {
		if a.Draw() == b.Draw() {
			same++
		}
	}
	assert.NotEqual(t, 10, same, "different master seeds should not produce the same sequence")
}

func TestDrawn(t *testing.T) {
	s := New(7)
	require.Empty(t, s.Drawn())

	first := s.Draw()
	second := s.Draw()

	drawn := s.Drawn()
	require.Len(t, drawn, 2)
	assert.Equal(t, first, drawn[0])
	assert.Equal(t, second, drawn[1])

	// mutating the copy must not affect the sequencer's record
	drawn[0] = 0
	assert.Equal(t, first, s.Drawn()[0])
}
