package tasks

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
)

// FeedState is the state of a [DeckFeed].
type FeedState int

const (
	Unauthenticated FeedState = iota
	Loading
	Populated
)

func (s FeedState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	default:
		return ""
	}
}

// DeckLister fetches decks. [services.DeckClient] implements it.
type DeckLister interface {
	ListDecks(ctx context.Context, search string) ([]models.Deck, error)
}

// DosLister fetches the dos of a deck. [services.DeckClient] implements it.
type DosLister interface {
	ListDos(ctx context.Context, deckID string) ([]models.Do, error)
}

// sequencer numbers requests and cancels the one each new request supersedes.
type sequencer struct {
	seq    uint64
	cancel context.CancelFunc
}

func (s *sequencer) next() (uint64, context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	return s.seq, ctx
}

// invalidate makes every issued request stale.
func (s *sequencer) invalidate() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

// settle reports whether seq is the latest request and releases its context if so.
func (s *sequencer) settle(seq uint64) bool {
	if seq != s.seq {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// DeckRequest is one fetch issued by a [DeckFeed].
type DeckRequest struct {
	Seq    uint64
	Search string
	ctx    context.Context
}

// Context is cancelled once a newer request is issued or the feed signs out.
func (r *DeckRequest) Context() context.Context { return r.ctx }

// DeckResult is the outcome of a [DeckRequest].
type DeckResult struct {
	Seq   uint64
	Decks []models.Deck
	Err   error
}

// DeckFeed holds the deck list shown to the user and decides when to fetch it.
//
// Transitions return the request to execute, or nil when no fetch is due. Execute it with
// [DeckFeed.Run] (typically off the UI goroutine) and hand the result to [DeckFeed.Apply].
// Only the result of the latest request can change the list.
type DeckFeed struct {
	mu            sync.Mutex
	client        DeckLister
	logger        *log.Logger
	state         FeedState
	authenticated bool
	search        string
	decks         []models.Deck
	seq           sequencer
}

// NewDeckFeed creates an unauthenticated feed.
func NewDeckFeed(client DeckLister, logger *log.Logger) *DeckFeed {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DeckFeed{client: client, logger: logger}
}

// SetAuthenticated records the session state. Becoming authenticated issues a fetch;
// becoming unauthenticated clears the list and abandons any fetch in flight.
func (f *DeckFeed) SetAuthenticated(authenticated bool) *DeckRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if authenticated == f.authenticated {
		return nil
	}
	f.authenticated = authenticated

	if !authenticated {
		f.seq.invalidate()
		f.decks = nil
		f.state = Unauthenticated
		return nil
	}
	return f.issueLocked()
}

// SetSearch changes the search term. A changed term issues a fetch when authenticated.
func (f *DeckFeed) SetSearch(term string) *DeckRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if term == f.search {
		return nil
	}
	f.search = term

	if !f.authenticated {
		return nil
	}
	return f.issueLocked()
}

// Refresh re-fetches with the current term. Nil when unauthenticated.
func (f *DeckFeed) Refresh() *DeckRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.authenticated {
		return nil
	}
	return f.issueLocked()
}

func (f *DeckFeed) issueLocked() *DeckRequest {
	seq, ctx := f.seq.next()
	f.state = Loading
	f.logger.Debug("fetching decks", "seq", seq, "search", f.search)
	return &DeckRequest{Seq: seq, Search: f.search, ctx: ctx}
}

// Run performs the fetch described by req.
func (f *DeckFeed) Run(req *DeckRequest) DeckResult {
	decks, err := f.client.ListDecks(req.ctx, req.Search)
	return DeckResult{Seq: req.Seq, Decks: decks, Err: err}
}

// Apply settles a fetch. It reports false when the result is stale and was discarded.
//
// A successful result replaces the list; a failed one leaves the previous list in place.
func (f *DeckFeed) Apply(res DeckResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.authenticated || !f.seq.settle(res.Seq) {
		f.logger.Debug("discarding stale deck response", "seq", res.Seq)
		return false
	}

	f.state = Populated
	if res.Err != nil {
		if !errors.Is(res.Err, context.Canceled) {
			f.logger.Warn("failed to fetch decks", "seq", res.Seq, "error", res.Err)
		}
		return true
	}

	f.decks = res.Decks
	if f.decks == nil {
		f.decks = []models.Deck{}
	}
	f.logger.Debug("decks loaded", "seq", res.Seq, "count", len(f.decks))
	return true
}

// State returns the current state.
func (f *DeckFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Search returns the current search term.
func (f *DeckFeed) Search() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search
}

// Decks returns a copy of the current list.
func (f *DeckFeed) Decks() []models.Deck {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Deck, len(f.decks))
	copy(out, f.decks)
	return out
}

// IsAuthError reports whether err means the session has ended.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}

// DosRequest is one fetch issued by a [DosFeed].
type DosRequest struct {
	Seq    uint64
	DeckID string
	ctx    context.Context
}

// DosResult is the outcome of a [DosRequest].
type DosResult struct {
	Seq    uint64
	DeckID string
	Dos    []models.Do
	Err    error
}

// DosFeed holds the dos of the selected deck, sequenced like [DeckFeed].
type DosFeed struct {
	mu     sync.Mutex
	client DosLister
	logger *log.Logger
	deckID string
	dos    []models.Do
	failed bool
	seq    sequencer
}

// NewDosFeed creates an empty feed.
func NewDosFeed(client DosLister, logger *log.Logger) *DosFeed {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DosFeed{client: client, logger: logger}
}

// Select shows deckID. Selecting a different deck clears the list and issues a fetch.
// Selecting the current deck again only re-fetches when its last fetch failed.
func (f *DosFeed) Select(deckID string) *DosRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if deckID == f.deckID && !f.failed {
		return nil
	}
	if deckID != f.deckID {
		f.dos = nil
	}
	f.deckID = deckID
	f.failed = false
	if deckID == "" {
		f.seq.invalidate()
		return nil
	}

	seq, ctx := f.seq.next()
	return &DosRequest{Seq: seq, DeckID: deckID, ctx: ctx}
}

// Clear forgets the selection.
func (f *DosFeed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq.invalidate()
	f.deckID = ""
	f.dos = nil
	f.failed = false
}

// Run performs the fetch described by req.
func (f *DosFeed) Run(req *DosRequest) DosResult {
	dos, err := f.client.ListDos(req.ctx, req.DeckID)
	return DosResult{Seq: req.Seq, DeckID: req.DeckID, Dos: dos, Err: err}
}

// Apply settles a fetch, reporting false for stale results.
func (f *DosFeed) Apply(res DosResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.seq.settle(res.Seq) {
		return false
	}
	if res.Err != nil {
		if !errors.Is(res.Err, context.Canceled) {
			f.logger.Warn("failed to fetch dos", "deck", res.DeckID, "error", res.Err)
		}
		f.failed = true
		return true
	}
	f.dos = res.Dos
	return true
}

// DeckID returns the selected deck.
func (f *DosFeed) DeckID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deckID
}

// Dos returns a copy of the selected deck's dos.
func (f *DosFeed) Dos() []models.Do {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Do, len(f.dos))
	copy(out, f.dos)
	return out
}
