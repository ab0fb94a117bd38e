package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
)

// DeckClient reads decks and dos from the deck service.
type DeckClient struct {
	api    *APIService
	logger *log.Logger
}

// NewDeckClient wraps api. A nil logger discards skipped-record warnings.
func NewDeckClient(api *APIService, logger *log.Logger) *DeckClient {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DeckClient{api: api, logger: logger}
}

// Health is the body of GET /healthz.
type Health struct {
	OK          bool   `json:"ok"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// deckRecord tells a missing name apart from an empty one.
type deckRecord struct {
	models.Deck
	Name *string `json:"name"`
}

type itemsEnvelope struct {
	Items []json.RawMessage `json:"items"`
}

// ListDecks fetches the caller's decks, filtered by a name prefix when search is not empty.
// A body without items yields an empty list. Items that do not decode or carry no name are
// skipped; every other item is kept as sent.
func (c *DeckClient) ListDecks(ctx context.Context, search string) ([]models.Deck, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}

	items, err := c.getItems(ctx, "/v1/decks", query)
	if err != nil {
		return nil, err
	}

	decks := make([]models.Deck, 0, len(items))
	for i, raw := range items {
		var rec deckRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("skipping malformed deck", "index", i, "error", err)
			continue
		}
		if rec.Name == nil {
			c.logger.Warn("skipping deck without name", "index", i)
			continue
		}
		rec.Deck.Name = *rec.Name
		decks = append(decks, rec.Deck)
	}
	return decks, nil
}

// GetDeck fetches one deck.
func (c *DeckClient) GetDeck(ctx context.Context, deckID string) (*models.DeckDetail, error) {
	resp, err := c.api.Get(ctx, "/v1/decks/"+url.PathEscape(deckID), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(resp)
	}

	var deck models.DeckDetail
	if err := json.Unmarshal(resp.Body, &deck); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	if err := models.Validate(&deck); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return &deck, nil
}

// ListDos fetches the dos of a deck in creation order.
func (c *DeckClient) ListDos(ctx context.Context, deckID string) ([]models.Do, error) {
	items, err := c.getItems(ctx, "/v1/decks/"+url.PathEscape(deckID)+"/dos", nil)
	if err != nil {
		return nil, err
	}

	dos := make([]models.Do, 0, len(items))
	for i, raw := range items {
		var do models.Do
		if err := json.Unmarshal(raw, &do); err != nil {
			c.logger.Warn("skipping malformed do", "index", i, "error", err)
			continue
		}
		do.Normalize()
		if err := models.Validate(&do); err != nil {
			c.logger.Warn("skipping invalid do", "index", i, "error", err)
			continue
		}
		dos = append(dos, do)
	}
	return dos, nil
}

// Health checks the service without a token.
func (c *DeckClient) Health(ctx context.Context) (*Health, error) {
	resp, err := c.api.get(ctx, "/healthz", nil, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, statusError(resp))
	}

	var h Health
	if err := json.Unmarshal(resp.Body, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return &h, nil
}

func (c *DeckClient) getItems(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	start := time.Now()
	resp, err := c.api.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("deck service response", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if !resp.OK() {
		return nil, statusError(resp)
	}

	var envelope itemsEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return envelope.Items, nil
}
