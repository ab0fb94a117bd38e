package ui

import (
	"fmt"

	"github.com/desertthunder/dodeck/internal/models"
)

// deckItem renders one row of the Decks pane.
type deckItem struct {
	deck models.Deck
}

func (i deckItem) Title() string { return i.deck.DisplayName() }
func (i deckItem) Description() string {
	owner := "owner"
	if !i.deck.IsOwner {
		owner = "shared with you"
	}
	switch i.deck.Collaborators {
	case 0:
		return owner
	case 1:
		return fmt.Sprintf("%s • 1 collaborator", owner)
	default:
		return fmt.Sprintf("%s • %d collaborators", owner, i.deck.Collaborators)
	}
}

// doItem renders one row of the Dos pane. Completed dos are struck through.
type doItem struct {
	do models.Do
}

func (i doItem) String() string {
	if i.do.Completed {
		return "✓ " + styles.done.Render(i.do.Text)
	}
	return "○ " + i.do.Text
}
