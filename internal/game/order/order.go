// Package order manages the czar rotation: a flat ordered sequence of stable
// player ids with an id-to-index lookup rebuilt on every structural change.
package order

import (
	"slices"

	"github.com/quipdeck/quipdeck/internal/apperrors"
)

// Rotation wraps a player order for next-czar lookups and seat edits.
type Rotation struct {
	ids   []string
	index map[string]int
}

// New builds a rotation over a copy of ids.
func New(ids []string) *Rotation {
	r := &Rotation{ids: slices.Clone(ids)}
	r.reindex()
	return r
}

func (r *Rotation) reindex() {
	r.index = make(map[string]int, len(r.ids))
	for i, id := range r.ids {
		r.index[id] = i
	}
}

// IDs returns the rotation as a slice, in seat order.
func (r *Rotation) IDs() []string {
	return slices.Clone(r.ids)
}

func (r *Rotation) Len() int {
	return len(r.ids)
}

// Contains reports whether id holds a seat.
func (r *Rotation) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Next returns the first id after current, wrapping, for which excluded
// returns false. When current holds no seat the scan starts at seat 0.
// Errors when the rotation is empty or every seat is excluded.
func (r *Rotation) Next(current string, excluded func(id string) bool) (string, error) {
	if len(r.ids) == 0 {
		return "", apperrors.ErrEmptyOrder
	}
	start := 0
	if i, ok := r.index[current]; ok {
		start = i + 1
	}
	for step := 0; step < len(r.ids); step++ {
		candidate := r.ids[(start+step)%len(r.ids)]
		if candidate == current {
			continue
		}
		if excluded == nil || !excluded(candidate) {
			return candidate, nil
		}
	}
	return "", apperrors.ErrNoEligibleCzar
}

// Remove drops id from the rotation; the remaining seats keep their relative
// order. A no-op when id holds no seat.
func (r *Rotation) Remove(id string) {
	i, ok := r.index[id]
	if !ok {
		return
	}
	r.ids = slices.Delete(r.ids, i, i+1)
	r.reindex()
}

// InsertBefore seats id immediately before before.
func (r *Rotation) InsertBefore(id, before string) error {
	i, ok := r.index[before]
	if !ok {
		return apperrors.ErrUnknownBefore
	}
	r.ids = slices.Insert(r.ids, i, id)
	r.reindex()
	return nil
}
