package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ss ...string) []string { return ss }

func TestNewPool_CopiesInput(t *testing.T) {
	t.Parallel()

	src := ids("a", "b", "c")
	p := NewPool(src)
	src[0] = "mutated"

	assert.Equal(t, ids("a", "b", "c"), p.Draw)
	assert.Empty(t, p.Discard)
	assert.Equal(t, 3, p.Size())
}

func TestDrawCards_FromFront(t *testing.T) {
	t.Parallel()

	p := NewPool(ids("a", "b", "c", "d"))

	drawn := p.DrawCards(2)
	assert.Equal(t, ids("a", "b"), drawn)
	assert.Equal(t, ids("c", "d"), p.Draw)
}

func TestDrawCards_ReshufflesOnExhaustion(t *testing.T) {
	t.Parallel()

	p := NewPool(ids("a"))
	p.DiscardCards("b", "c", "d")

	drawn := p.DrawCards(3)
	require.Len(t, drawn, 3)
	assert.Empty(t, p.Discard, "discard pile recycled into draw")
	assert.Equal(t, 1, p.Size())
	// The pre-existing draw card keeps its position at the front.
	assert.Equal(t, "a", drawn[0])
}

func TestDrawCards_SoftShortfall(t *testing.T) {
	t.Parallel()

	p := NewPool(ids("a", "b"))

	drawn := p.DrawCards(5)
	assert.Len(t, drawn, 2)
	assert.True(t, p.Exhausted())

	// A draw from a fully exhausted pool yields nothing.
	assert.Empty(t, p.DrawCards(1))
}

func TestDrawCards_NonPositive(t *testing.T) {
	t.Parallel()

	p := NewPool(ids("a"))
	assert.Empty(t, p.DrawCards(0))
	assert.Empty(t, p.DrawCards(-1))
	assert.Equal(t, 1, p.Size())
}

func TestReshuffle_EmptyDiscardIsNoop(t *testing.T) {
	t.Parallel()

	p := NewPool(ids("a", "b"))
	p.Reshuffle()
	assert.Equal(t, ids("a", "b"), p.Draw)
	assert.Empty(t, p.Discard)
}

func TestConservation_DrawDiscardCycle(t *testing.T) {
	t.Parallel()

	all := ids("a", "b", "c", "d", "e")
	p := NewPool(all)
	p.Shuffle()

	held := map[string]bool{}
	for i := 0; i < 20; i++ {
		for _, id := range p.DrawCards(2) {
			require.False(t, held[id], "card %s drawn while already held", id)
			held[id] = true
		}
		for id := range held {
			p.DiscardCards(id)
			delete(held, id)
		}
		assert.Equal(t, len(all), p.Size()+len(held))
	}
}
