package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/desertthunder/dodeck/internal/tasks"
)

type fakeSession struct {
	authenticated bool
	user          *models.User
	loginErr      error
	logouts       int
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated }
func (s *fakeSession) User() *models.User {
	if !s.authenticated {
		return nil
	}
	return s.user
}

func (s *fakeSession) Login(ctx context.Context) (*models.User, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	s.authenticated = true
	return s.user, nil
}

func (s *fakeSession) Logout(ctx context.Context) (string, error) {
	s.authenticated = false
	s.logouts++
	return "https://dodeck.test/v2/logout", nil
}

type fakeClient struct {
	mu       sync.Mutex
	decks    map[string][]models.Deck
	dos      map[string][]models.Do
	err      error
	searches []string
}

func (c *fakeClient) ListDecks(ctx context.Context, search string) ([]models.Deck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, search)
	if c.err != nil {
		return nil, c.err
	}
	return c.decks[search], nil
}

func (c *fakeClient) ListDos(ctx context.Context, deckID string) ([]models.Do, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.dos[deckID], nil
}

func (c *fakeClient) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searches...)
}

func (c *fakeClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func newTestModel(authenticated bool, client *fakeClient) (*Model, *fakeSession, *[]string) {
	session := &fakeSession{
		authenticated: authenticated,
		user:          &models.User{Subject: "auth0|alice", Email: "alice@example.com"},
	}
	var opened []string
	m := NewModel(context.Background(), Options{
		Session: session,
		Client:  client,
		OpenURL: func(url string) error {
			opened = append(opened, url)
			return nil
		},
	})
	return m, session, &opened
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drive feeds msg to m and keeps feeding back every message the resulting commands produce.
func drive(m *Model, msg tea.Msg) []tea.Msg {
	_, cmd := m.Update(msg)
	var other []tea.Msg
	for _, next := range collect(cmd) {
		if _, ok := next.(Msg); ok {
			other = append(other, drive(m, next)...)
			continue
		}
		other = append(other, next)
	}
	return other
}

func runInit(m *Model) {
	for _, msg := range collect(m.Init()) {
		drive(m, msg)
	}
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyCtrlX = tea.KeyMsg{Type: tea.KeyCtrlX}
	keyCtrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestSignInScreen(t *testing.T) {
	client := &fakeClient{}
	m, _, _ := newTestModel(false, client)
	runInit(m)

	view := m.View()
	for _, want := range []string{"DoDeck", "Sign in to manage your Decks and Dos.", "Login / Sign Up"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected sign-in view to contain %q, got:\n%s", want, view)
		}
	}

	drive(m, keyRunes("/"))
	drive(m, keyRunes("x"))
	if got := client.calls(); len(got) != 0 {
		t.Errorf("expected no fetch while signed out, got %v", got)
	}
	if m.decks.State() != tasks.Unauthenticated {
		t.Errorf("expected unauthenticated feed, got %s", m.decks.State())
	}
}

func TestLogin(t *testing.T) {
	t.Run("success fetches decks once", func(t *testing.T) {
		client := &fakeClient{decks: map[string][]models.Deck{"": {{ID: "d1", Name: "A", IsOwner: true}}}}
		m, _, _ := newTestModel(false, client)

		drive(m, keyEnter)

		if m.view != DecksView {
			t.Fatalf("expected decks view, got %v", m.view)
		}
		if got := client.calls(); len(got) != 1 || got[0] != "" {
			t.Errorf("expected exactly one fetch without search, got %q", got)
		}
		view := m.View()
		if !strings.Contains(view, "A") || strings.Contains(view, "No decks yet.") {
			t.Errorf("expected deck A, got:\n%s", view)
		}
		if !strings.Contains(view, "Hello alice@example.com") {
			t.Errorf("expected greeting footer, got:\n%s", view)
		}
		if !strings.Contains(view, "+ New") || !strings.Contains(view, "+ Add Do") {
			t.Error("expected disabled write hints")
		}
	})

	t.Run("failure stays on sign-in", func(t *testing.T) {
		client := &fakeClient{}
		m, session, _ := newTestModel(false, client)
		session.loginErr = fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)

		drive(m, keyEnter)

		if m.view != SignInView {
			t.Fatalf("expected sign-in view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Login failed") {
			t.Errorf("expected failure message, got:\n%s", m.View())
		}
		if len(client.calls()) != 0 {
			t.Error("expected no fetch after failed login")
		}
	})

	t.Run("restored session", func(t *testing.T) {
		client := &fakeClient{decks: map[string][]models.Deck{"": {{Name: "A"}}}}
		m, _, _ := newTestModel(true, client)
		runInit(m)

		if m.view != DecksView || len(m.decks.Decks()) != 1 {
			t.Errorf("expected decks view with one deck, got view %v decks %v", m.view, m.decks.Decks())
		}
	})
}

func TestDeckList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m, _, _ := newTestModel(true, &fakeClient{})
		runInit(m)

		if !strings.Contains(m.View(), "No decks yet.") {
			t.Errorf("expected empty state, got:\n%s", m.View())
		}
		if m.decks.State() != tasks.Populated {
			t.Errorf("expected populated, got %s", m.decks.State())
		}
	})

	t.Run("failure keeps previous list", func(t *testing.T) {
		client := &fakeClient{decks: map[string][]models.Deck{"": {{Name: "A"}}}}
		m, _, _ := newTestModel(true, client)
		runInit(m)

		client.fail(&failure{"API request failed: status 500"})
		drive(m, keyRunes("/"))
		drive(m, keyRunes("x"))

		decks := m.decks.Decks()
		if len(decks) != 1 || decks[0].Name != "A" {
			t.Errorf("expected previous list to remain, got %v", decks)
		}
		if !strings.Contains(m.View(), "A") {
			t.Error("expected A to remain visible")
		}
	})

	t.Run("each search change fetches once", func(t *testing.T) {
		client := &fakeClient{decks: map[string][]models.Deck{
			"":   {{Name: "Alpha"}, {Name: "Beta"}},
			"a":  {{Name: "Alpha"}},
			"al": {{Name: "Alpha"}},
		}}
		m, _, _ := newTestModel(true, client)
		runInit(m)

		drive(m, keyRunes("/"))
		if !m.searching {
			t.Fatal("expected search to be focused")
		}
		drive(m, keyRunes("a"))
		drive(m, keyRunes("l"))

		want := []string{"", "a", "al"}
		got := client.calls()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected fetches %q, got %q", want, got)
		}
		if m.decks.Search() != "al" {
			t.Errorf("expected search al, got %q", m.decks.Search())
		}

		drive(m, keyEsc)
		if m.searching {
			t.Error("expected esc to leave search")
		}
		if len(client.calls()) != 3 {
			t.Error("expected leaving search not to fetch")
		}
	})

	t.Run("stale response is discarded", func(t *testing.T) {
		client := &fakeClient{decks: map[string][]models.Deck{
			"b":  {{Name: "Old"}},
			"bo": {{Name: "New"}},
		}}
		m, _, _ := newTestModel(true, client)
		runInit(m)
		drive(m, keyRunes("/"))

		_, first := m.Update(keyRunes("b"))
		_, second := m.Update(keyRunes("o"))

		newer := collect(second)
		older := collect(first)
		for _, msg := range newer {
			m.Update(msg)
		}
		for _, msg := range older {
			m.Update(msg)
		}

		decks := m.decks.Decks()
		if len(decks) != 1 || decks[0].Name != "New" {
			t.Errorf("expected newest response to win, got %v", decks)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m, _, _ := newTestModel(true, &fakeClient{})
		runInit(m)

		msgs := drive(m, keyRunes("q"))
		if len(msgs) != 1 {
			t.Fatalf("expected quit message, got %v", msgs)
		}
		if _, ok := msgs[0].(tea.QuitMsg); !ok {
			t.Errorf("expected tea.QuitMsg, got %T", msgs[0])
		}
	})

	t.Run("q types while searching", func(t *testing.T) {
		client := &fakeClient{}
		m, _, _ := newTestModel(true, client)
		runInit(m)

		drive(m, keyRunes("/"))
		msgs := drive(m, keyRunes("q"))
		for _, msg := range msgs {
			if _, ok := msg.(tea.QuitMsg); ok {
				t.Fatal("expected q to be typed, not quit")
			}
		}
		if m.search.Value() != "q" {
			t.Errorf("expected search q, got %q", m.search.Value())
		}

		msgs = drive(m, keyCtrlC)
		if len(msgs) != 1 {
			t.Fatalf("expected ctrl+c to quit, got %v", msgs)
		}
	})
}

func TestDosPane(t *testing.T) {
	client := &fakeClient{
		decks: map[string][]models.Deck{"": {{ID: "d1", Name: "Work"}, {ID: "d2", Name: "Home"}}},
		dos: map[string][]models.Do{
			"d2": {
				{ID: "1", DeckID: "d2", Text: "Sweep"},
				{ID: "2", DeckID: "d2", Text: "Dishes", Completed: true},
			},
		},
	}
	m, _, _ := newTestModel(true, client)
	runInit(m)

	if !strings.Contains(m.View(), "Select a deck") {
		t.Errorf("expected selection hint, got:\n%s", m.View())
	}

	drive(m, keyDown)
	drive(m, keyEnter)

	if m.dos.DeckID() != "d2" {
		t.Fatalf("expected d2 selected, got %q", m.dos.DeckID())
	}
	view := m.View()
	if !strings.Contains(view, "○ Sweep") {
		t.Errorf("expected open do, got:\n%s", view)
	}
	if !strings.Contains(view, "✓") || !strings.Contains(view, "Dishes") {
		t.Errorf("expected completed do, got:\n%s", view)
	}

	drive(m, keyDown)
	if m.cursor != 1 {
		t.Errorf("expected cursor to stop at the last deck, got %d", m.cursor)
	}
}

func TestLogout(t *testing.T) {
	client := &fakeClient{
		decks: map[string][]models.Deck{"": {{ID: "d1", Name: "A"}}},
		dos:   map[string][]models.Do{"d1": {{ID: "1", DeckID: "d1", Text: "x"}}},
	}
	m, session, opened := newTestModel(true, client)
	runInit(m)
	drive(m, keyEnter)

	drive(m, keyCtrlX)

	if m.view != SignInView {
		t.Fatalf("expected sign-in view, got %v", m.view)
	}
	if session.logouts != 1 {
		t.Errorf("expected one logout, got %d", session.logouts)
	}
	if len(m.decks.Decks()) != 0 || m.dos.DeckID() != "" {
		t.Error("expected deck state to be cleared")
	}
	if m.decks.State() != tasks.Unauthenticated {
		t.Errorf("expected unauthenticated, got %s", m.decks.State())
	}
	if len(*opened) != 1 || !strings.Contains((*opened)[0], "/v2/logout") {
		t.Errorf("expected logout page to be opened, got %v", *opened)
	}
	if !strings.Contains(m.View(), "Sign in to manage your Decks and Dos.") {
		t.Errorf("expected sign-in screen, got:\n%s", m.View())
	}
}

func TestLogoutWhileSearching(t *testing.T) {
	client := &fakeClient{decks: map[string][]models.Deck{"": {{ID: "d1", Name: "A"}}}}
	m, session, _ := newTestModel(true, client)
	runInit(m)

	drive(m, keyRunes("/"))
	if !m.searching {
		t.Fatal("expected search to be focused")
	}
	drive(m, keyCtrlX)

	if session.logouts != 1 {
		t.Errorf("expected one logout, got %d", session.logouts)
	}
	if m.searching {
		t.Error("expected search to lose focus")
	}
	if m.view != SignInView {
		t.Errorf("expected sign-in view, got %v", m.view)
	}
}

func TestRefresh(t *testing.T) {
	client := &fakeClient{decks: map[string][]models.Deck{"": {{ID: "d1", Name: "A"}}}}
	m, _, _ := newTestModel(true, client)
	runInit(m)

	client.mu.Lock()
	client.decks[""] = []models.Deck{{ID: "d1", Name: "A"}, {ID: "d2", Name: "   "}}
	client.mu.Unlock()
	drive(m, keyRunes("r"))

	if got := client.calls(); len(got) != 2 {
		t.Errorf("expected a second fetch, got %v", got)
	}
	if len(m.decks.Decks()) != 2 {
		t.Fatalf("expected refreshed list, got %+v", m.decks.Decks())
	}
	if !strings.Contains(m.View(), "Untitled deck") {
		t.Errorf("expected blank deck name placeholder, got:\n%s", m.View())
	}
}

func TestDosRetry(t *testing.T) {
	client := &fakeClient{
		decks: map[string][]models.Deck{"": {{ID: "d1", Name: "Work"}}},
		dos:   map[string][]models.Do{"d1": {{ID: "1", DeckID: "d1", Text: "Sweep"}}},
	}
	m, _, _ := newTestModel(true, client)
	runInit(m)

	client.fail(shared.ErrAPIRequest)
	drive(m, keyEnter)
	if strings.Contains(m.View(), "Sweep") {
		t.Fatalf("expected no dos after failure, got:\n%s", m.View())
	}

	client.fail(nil)
	drive(m, keyEnter)
	if !strings.Contains(m.View(), "○ Sweep") {
		t.Errorf("expected dos after retry, got:\n%s", m.View())
	}
}

func TestSessionExpired(t *testing.T) {
	client := &fakeClient{decks: map[string][]models.Deck{"": {{Name: "A"}}}}
	m, _, _ := newTestModel(true, client)
	runInit(m)

	client.fail(errors.Join(shared.ErrNotAuthenticated, shared.ErrRefreshFailed))
	drive(m, keyRunes("/"))
	drive(m, keyRunes("z"))

	if m.view != SignInView {
		t.Fatalf("expected sign-in view after auth failure, got %v", m.view)
	}
	if len(m.decks.Decks()) != 0 {
		t.Error("expected deck list to be cleared")
	}
	if !strings.Contains(m.View(), "expired") {
		t.Errorf("expected expiry message, got:\n%s", m.View())
	}
}

type failure struct{ msg string }

func (f *failure) Error() string { return f.msg }
