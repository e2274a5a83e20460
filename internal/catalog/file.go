package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// deckFile is the on-disk shape of one deck.
type deckFile struct {
	Name    string   `yaml:"name"`
	Tags    []string `yaml:"tags"`
	Prompts []struct {
		Text string `yaml:"text"`
		Pick int    `yaml:"pick"`
	} `yaml:"prompts"`
	Responses []string `yaml:"responses"`
}

// deck is a loaded deck with assigned card ids.
type deck struct {
	name      string
	tags      []string
	prompts   []PromptCard
	responses []ResponseCard
}

// FileCatalog serves deck files loaded once at startup. Card ids are derived
// from the deck name and card position, so they are stable across restarts
// and sessions in flight survive a reload.
type FileCatalog struct {
	decks []deck
}

// LoadDir reads every *.yaml deck file under dir.
func LoadDir(dir string) (*FileCatalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read deck dir: %w", err)
	}

	fc := &FileCatalog{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		d, err := loadDeck(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("deck %s: %w", entry.Name(), err)
		}
		fc.decks = append(fc.decks, d)
	}
	return fc, nil
}

func loadDeck(path string) (deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deck{}, err
	}

	var df deckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return deck{}, err
	}
	if df.Name == "" {
		df.Name = strings.TrimSuffix(filepath.Base(path), ".yaml")
	}

	d := deck{name: df.Name, tags: df.Tags}
	for i, p := range df.Prompts {
		pick := p.Pick
		if pick <= 0 {
			pick = 1
		}
		d.prompts = append(d.prompts, PromptCard{
			ID:   fmt.Sprintf("%s/p%d", df.Name, i),
			Text: p.Text,
			Pick: pick,
			Tags: df.Tags,
		})
	}
	for i, text := range df.Responses {
		d.responses = append(d.responses, ResponseCard{
			ID:   fmt.Sprintf("%s/r%d", df.Name, i),
			Text: text,
			Tags: df.Tags,
		})
	}
	return d, nil
}

// Select implements Catalog.
func (fc *FileCatalog) Select(f Filter) (*Selection, error) {
	sel := &Selection{}
	for _, d := range fc.decks {
		if !matchDeck(d, f) {
			continue
		}
		sel.Prompts = append(sel.Prompts, d.prompts...)
		sel.Responses = append(sel.Responses, d.responses...)
	}
	if len(sel.Prompts) == 0 {
		return nil, ErrNoPrompts
	}
	if len(sel.Responses) == 0 {
		return nil, ErrNoResponses
	}
	return sel, nil
}

func matchDeck(d deck, f Filter) bool {
	if len(f.Decks) > 0 && !slices.Contains(f.Decks, d.name) {
		return false
	}
	if len(f.Tags) > 0 {
		for _, want := range f.Tags {
			if slices.Contains(d.tags, want) {
				return true
			}
		}
		return false
	}
	return true
}
