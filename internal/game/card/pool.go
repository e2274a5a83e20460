package card

import "math/rand/v2"

// Type distinguishes the two card pools of a session.
type Type string

const (
	TypePrompt   Type = "prompt"
	TypeResponse Type = "response"
)

// Pool is one card type's draw and discard piles. The zero value is an empty
// pool. A Pool is embedded in the session document and serialized with it, so
// it holds card ids only, not card content.
type Pool struct {
	Draw    []string `json:"draw"`
	Discard []string `json:"discard"`
}

// NewPool builds a pool whose draw pile holds the given ids, unshuffled.
// The caller shuffles once at session start.
func NewPool(ids []string) Pool {
	draw := make([]string, len(ids))
	copy(draw, ids)
	return Pool{Draw: draw, Discard: []string{}}
}

// Shuffle applies a fresh uniform permutation to the draw pile.
func (p *Pool) Shuffle() {
	rand.Shuffle(len(p.Draw), func(i, j int) {
		p.Draw[i], p.Draw[j] = p.Draw[j], p.Draw[i]
	})
}

// DrawCards removes up to n ids from the front of the draw pile. When the
// draw pile cannot cover n it first recycles the discard pile; if the pool is
// still short it returns whatever is available. Callers decide whether a
// shortfall is soft (hand refill) or terminal (prompt draw).
func (p *Pool) DrawCards(n int) []string {
	if n <= 0 {
		return nil
	}
	if len(p.Draw) < n {
		p.Reshuffle()
	}
	if n > len(p.Draw) {
		n = len(p.Draw)
	}
	drawn := make([]string, n)
	copy(drawn, p.Draw[:n])
	p.Draw = append([]string{}, p.Draw[n:]...)
	return drawn
}

// DiscardCards appends ids to the discard pile. The caller must already have
// removed them from wherever they were held.
func (p *Pool) DiscardCards(ids ...string) {
	p.Discard = append(p.Discard, ids...)
}

// Reshuffle moves the whole discard pile into the draw pile under a fresh
// uniform permutation. A no-op when the discard pile is empty.
func (p *Pool) Reshuffle() {
	if len(p.Discard) == 0 {
		return
	}
	recycled := p.Discard
	rand.Shuffle(len(recycled), func(i, j int) {
		recycled[i], recycled[j] = recycled[j], recycled[i]
	})
	p.Draw = append(p.Draw, recycled...)
	p.Discard = []string{}
}

// Size is the number of cards currently in the pool's two piles.
func (p *Pool) Size() int {
	return len(p.Draw) + len(p.Discard)
}

// Exhausted reports whether both piles are empty.
func (p *Pool) Exhausted() bool {
	return len(p.Draw) == 0 && len(p.Discard) == 0
}
