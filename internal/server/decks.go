package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/repositories"
	"github.com/desertthunder/dodeck/internal/shared"
)

// DeckStore is the read side of the deck repository.
type DeckStore interface {
	List(ctx context.Context, caller repositories.Caller, visibility repositories.Visibility, search string) ([]models.Deck, error)
	Get(ctx context.Context, id string) (*models.DeckDetail, error)
	ListDos(ctx context.Context, deckID string) ([]models.Do, error)
}

// DeckHandler serves the /v1/decks endpoints. Every route requires a [Principal].
type DeckHandler struct {
	store                DeckStore
	requireEmailVerified bool
	logger               *log.Logger
	mux                  *http.ServeMux
}

// NewDeckHandler creates a [DeckHandler]; auth wraps each route.
func NewDeckHandler(store DeckStore, auth Middleware, requireEmailVerified bool, logger *log.Logger) *DeckHandler {
	h := &DeckHandler{
		store:                store,
		requireEmailVerified: requireEmailVerified,
		logger:               logger,
		mux:                  http.NewServeMux(),
	}
	h.mux.Handle("GET /v1/decks", auth(http.HandlerFunc(h.listDecks)))
	h.mux.Handle("GET /v1/decks/{id}", auth(http.HandlerFunc(h.getDeck)))
	h.mux.Handle("GET /v1/decks/{id}/dos", auth(http.HandlerFunc(h.listDos)))
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *DeckHandler) Routes() []string {
	return []string{"GET /v1/decks", "GET /v1/decks/{id}", "GET /v1/decks/{id}/dos"}
}

func (h *DeckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *DeckHandler) listDecks(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	query := r.URL.Query()

	visibility, err := repositories.ParseVisibility(query.Get("visibility"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid_visibility")
		return
	}
	if visibility.NeedsEmail() {
		if _, err := p.RequireEmail(h.requireEmailVerified); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	caller := repositories.Caller{Subject: p.Subject, Email: p.AccessEmail()}
	decks, err := h.store.List(r.Context(), caller, visibility, query.Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": decks})
}

func (h *DeckHandler) getDeck(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	deck, err := h.readableDeck(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (h *DeckHandler) listDos(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	deck, err := h.readableDeck(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dos, err := h.store.ListDos(r.Context(), deck.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": dos})
}

// readableDeck loads a deck the caller owns or collaborates on.
// Non-owners need an email, which must be verified when the service requires it.
func (h *DeckHandler) readableDeck(ctx context.Context, p *Principal, id string) (*models.DeckDetail, error) {
	deck, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	deck.IsOwner = deck.OwnerSub == p.Subject
	if deck.IsOwner {
		return deck, nil
	}

	email, err := p.RequireEmail(h.requireEmailVerified)
	if err != nil {
		return nil, err
	}
	if !repositories.CanRead(deck, repositories.Caller{Subject: p.Subject, Email: email}) {
		return nil, &apiError{http.StatusForbidden, "forbidden"}
	}
	return deck, nil
}

func (h *DeckHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		writeDetail(w, apiErr.status, apiErr.detail)
	case errors.Is(err, shared.ErrDeckNotFound):
		writeDetail(w, http.StatusNotFound, "deck_not_found")
	case errors.Is(err, context.Canceled):
		h.logger.Debug("request cancelled", "path", r.URL.Path)
	default:
		h.logger.Error("Unhandled error processing request", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}
