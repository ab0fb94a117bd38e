package repositories

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/dodeck/internal/shared"
)

// Fixture is a set of decks to import, read from TOML:
//
//	[[decks]]
//	name = "Groceries"
//	owner = "auth0|alice"
//	collaborators = ["bob@example.com"]
//
//	  [[decks.dos]]
//	  text = "Milk"
//	  completed = true
type Fixture struct {
	Decks []FixtureDeck `toml:"decks"`
}

// FixtureDeck is one deck of a [Fixture].
type FixtureDeck struct {
	Name          string      `toml:"name"`
	Owner         string      `toml:"owner"`
	Collaborators []string    `toml:"collaborators"`
	Dos           []FixtureDo `toml:"dos"`
}

// FixtureDo is one do of a [FixtureDeck].
type FixtureDo struct {
	Text      string `toml:"text"`
	Completed bool   `toml:"completed"`
}

// LoadFixture decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	var f Fixture
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return &f, nil
}

// ParseFixture decodes fixture TOML from a string.
func ParseFixture(data string) (*Fixture, error) {
	var f Fixture
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return &f, nil
}

// Validate checks names, owners and do text using the same limits as the wire records.
func (f *Fixture) Validate() error {
	for i, d := range f.Decks {
		name := strings.TrimSpace(d.Name)
		if name == "" || len(name) > 120 {
			return fmt.Errorf("%w: deck %d: name must be 1-120 characters", shared.ErrInvalidInput, i)
		}
		if strings.TrimSpace(d.Owner) == "" {
			return fmt.Errorf("%w: deck %q: owner is required", shared.ErrInvalidInput, name)
		}
		for j, do := range d.Dos {
			text := strings.TrimSpace(do.Text)
			if text == "" || len(text) > 1000 {
				return fmt.Errorf("%w: deck %q do %d: text must be 1-1000 characters", shared.ErrInvalidInput, name, j)
			}
		}
	}
	return nil
}
