// Package catalog provides the card catalog consumed by the session engine:
// given tag/deck filters it returns the disjoint prompt and response card sets
// a session plays with, fixed for the session's lifetime.
package catalog

import "errors"

var (
	ErrNoPrompts   = errors.New("catalog: filter matches no prompt cards")
	ErrNoResponses = errors.New("catalog: filter matches no response cards")
)

// PromptCard poses a round's challenge. Pick is the number of response cards
// a submission to it must contain.
type PromptCard struct {
	ID   string   `json:"id" yaml:"id"`
	Text string   `json:"text" yaml:"text"`
	Pick int      `json:"pick" yaml:"pick"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ResponseCard is submitted by non-czar players to match a prompt.
type ResponseCard struct {
	ID   string   `json:"id" yaml:"id"`
	Text string   `json:"text" yaml:"text"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Filter narrows the catalog to a session's chosen decks and tags. Empty
// fields match everything.
type Filter struct {
	Decks []string `json:"decks,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Selection is the filtered card pool a session is created over.
type Selection struct {
	Prompts   []PromptCard
	Responses []ResponseCard
}

// ResponseIDs returns the ids of the selected response cards.
func (s *Selection) ResponseIDs() []string {
	ids := make([]string, len(s.Responses))
	for i, c := range s.Responses {
		ids[i] = c.ID
	}
	return ids
}

// Catalog resolves filters against the persistent card/deck store. The engine
// treats it as read-only.
type Catalog interface {
	Select(f Filter) (*Selection, error)
}
