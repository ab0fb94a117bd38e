package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
)

// Visibility selects which decks a listing covers.
type Visibility string

const (
	VisibilityMine   Visibility = "mine"
	VisibilityShared Visibility = "shared"
	VisibilityAll    Visibility = "all"
)

// ParseVisibility maps a query value to a [Visibility]. Empty means [VisibilityAll].
func ParseVisibility(v string) (Visibility, error) {
	switch Visibility(v) {
	case "":
		return VisibilityAll, nil
	case VisibilityMine, VisibilityShared, VisibilityAll:
		return Visibility(v), nil
	default:
		return "", fmt.Errorf("%w: visibility %q", shared.ErrInvalidArgument, v)
	}
}

// NeedsEmail reports whether listing with v requires a caller email.
func (v Visibility) NeedsEmail() bool { return v != VisibilityMine }

// Caller identifies who is reading. Email is lower-cased and may be empty.
type Caller struct {
	Subject string
	Email   string
}

// DeckRepository reads decks, collaborators and dos.
type DeckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new [DeckRepository] with the given database connection
func NewDeckRepository(db *sql.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

// List returns the decks visible to caller whose name starts with search (case-insensitive),
// owned decks first then by lower-cased name.
func (r *DeckRepository) List(ctx context.Context, caller Caller, visibility Visibility, search string) ([]models.Deck, error) {
	var (
		where []string
		args  []any
	)

	collab := `EXISTS (SELECT 1 FROM deck_collaborators c WHERE c.deck_id = d.id AND c.email = ?)`
	switch visibility {
	case VisibilityMine:
		where = append(where, "d.owner_sub = ?")
		args = append(args, caller.Subject)
	case VisibilityShared:
		where = append(where, "d.owner_sub != ? AND "+collab)
		args = append(args, caller.Subject, caller.Email)
	default:
		where = append(where, "(d.owner_sub = ? OR "+collab+")")
		args = append(args, caller.Subject, caller.Email)
	}

	if search = strings.ToLower(search); search != "" {
		where = append(where, `d.name_lower LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(search)+"%")
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.name, d.owner_sub,
			(SELECT COUNT(*) FROM deck_collaborators c WHERE c.deck_id = d.id)
		FROM decks d
		WHERE %s
		ORDER BY (d.owner_sub = ?) DESC, d.name_lower ASC
	`, strings.Join(where, " AND "))
	args = append(args, caller.Subject)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decks: %w", err)
	}
	defer rows.Close()

	decks := []models.Deck{}
	for rows.Next() {
		var (
			deck  models.Deck
			owner string
		)
		if err := rows.Scan(&deck.ID, &deck.Name, &owner, &deck.Collaborators); err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		deck.IsOwner = owner == caller.Subject
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decks: %w", err)
	}
	return decks, nil
}

// Get loads a deck with its sorted collaborator emails, returning [shared.ErrDeckNotFound] when absent.
func (r *DeckRepository) Get(ctx context.Context, id string) (*models.DeckDetail, error) {
	query := `
		SELECT id, name, owner_sub, created_at, updated_at
		FROM decks
		WHERE id = ?
	`

	var deck models.DeckDetail
	err := r.db.QueryRowContext(ctx, query, id).Scan(&deck.ID, &deck.Name, &deck.OwnerSub, &deck.CreatedAt, &deck.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrDeckNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query deck: %w", err)
	}

	collaborators, err := r.Collaborators(ctx, id)
	if err != nil {
		return nil, err
	}
	deck.Collaborators = collaborators
	return &deck, nil
}

// Collaborators returns the collaborator emails of a deck in ascending order.
func (r *DeckRepository) Collaborators(ctx context.Context, deckID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT email FROM deck_collaborators WHERE deck_id = ? ORDER BY email", deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// ListDos returns the dos of a deck ordered by creation time.
func (r *DeckRepository) ListDos(ctx context.Context, deckID string) ([]models.Do, error) {
	query := `
		SELECT id, deck_id, text, completed, created_at, updated_at
		FROM dos
		WHERE deck_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dos: %w", err)
	}
	defer rows.Close()

	dos := []models.Do{}
	for rows.Next() {
		var do models.Do
		if err := rows.Scan(&do.ID, &do.DeckID, &do.Text, &do.Completed, &do.CreatedAt, &do.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan do: %w", err)
		}
		dos = append(dos, do)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dos: %w", err)
	}
	return dos, nil
}

// CanRead reports whether caller owns deck or is listed as a collaborator.
func CanRead(deck *models.DeckDetail, caller Caller) bool {
	if deck.OwnerSub == caller.Subject {
		return true
	}
	if caller.Email == "" {
		return false
	}
	for _, email := range deck.Collaborators {
		if email == caller.Email {
			return true
		}
	}
	return false
}

// Import inserts every deck in fixture with generated ids inside one transaction.
// It returns the number of decks and dos written.
func (r *DeckRepository) Import(ctx context.Context, fixture *Fixture) (int, int, error) {
	if err := fixture.Validate(); err != nil {
		return 0, 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deckCount, doCount int
	base := time.Now().UTC()
	for _, fd := range fixture.Decks {
		id := shared.GenerateID()
		name := strings.TrimSpace(fd.Name)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO decks (id, name, name_lower, owner_sub, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			id, name, strings.ToLower(name), fd.Owner, base, base,
		); err != nil {
			return 0, 0, fmt.Errorf("failed to insert deck %q: %w", name, err)
		}
		deckCount++

		for _, email := range fd.Collaborators {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO deck_collaborators (deck_id, email, added_at) VALUES (?, ?, ?)",
				id, strings.ToLower(strings.TrimSpace(email)), base,
			); err != nil {
				return 0, 0, fmt.Errorf("failed to insert collaborator %q: %w", email, err)
			}
		}

		for i, fdo := range fd.Dos {
			// spaced by a millisecond so fixture order survives created_at ordering
			created := base.Add(time.Duration(i) * time.Millisecond)
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO dos (id, deck_id, text, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
				shared.GenerateID(), id, strings.TrimSpace(fdo.Text), fdo.Completed, created, created,
			); err != nil {
				return 0, 0, fmt.Errorf("failed to insert do: %w", err)
			}
			doCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return deckCount, doCount, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
