package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/desertthunder/dodeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SignInView ViewState = iota
	DecksView
)

// Session is the part of the session provider the TUI drives.
type Session interface {
	IsAuthenticated() bool
	User() *models.User
	Login(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) (string, error)
}

// DeckClient fetches decks and dos.
type DeckClient interface {
	tasks.DeckLister
	tasks.DosLister
}

// Options configures a [Model].
type Options struct {
	Session Session
	Client  DeckClient
	Logger  *log.Logger
	OpenURL shared.URLOpener // opens the identity provider logout page; nil skips it
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	session   Session
	decks     *tasks.DeckFeed
	dos       *tasks.DosFeed
	logger    *log.Logger
	openURL   shared.URLOpener
	search    textinput.Model
	searching bool
	cursor    int
	loggingIn bool
	status    string
	width     int
	height    int
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	search := textinput.New()
	search.Placeholder = "Search decks"
	search.Prompt = "🔍 "
	search.CharLimit = 120
	search.Cursor.SetMode(cursor.CursorStatic)

	return &Model{
		ctx:     ctx,
		view:    SignInView,
		session: opts.Session,
		decks:   tasks.NewDeckFeed(opts.Client, logger),
		dos:     tasks.NewDosFeed(opts.Client, logger),
		logger:  logger,
		openURL: opts.OpenURL,
		search:  search,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init shows the decks right away when a stored session was restored.
func (m *Model) Init() tea.Cmd {
	if m.session.IsAuthenticated() {
		return m.signedIn()
	}
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SignInView:
			return m.handleSignInKeys(msg)
		case DecksView:
			if m.searching {
				return m.handleSearchKeys(msg)
			}
			return m.handleDeckKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoggedIn:
		res := msg.data.(loginResult)
		m.loggingIn = false
		if res.err != nil {
			m.logger.Error("login failed", "error", res.err)
			m.status = fmt.Sprintf("Login failed: %v", res.err)
			return m, nil
		}
		m.logger.Info("signed in", "user", res.user.Display())
		return m, m.signedIn()

	case MsgLoggedOut:
		res := msg.data.(logoutResult)
		if res.err != nil {
			m.logger.Warn("failed to clear stored credential", "error", res.err)
		}
		m.signOut("Signed out.")
		return m, nil

	case MsgDecksFetched:
		res := msg.data.(tasks.DeckResult)
		if tasks.IsAuthError(res.Err) {
			m.signOut("Your session has expired. Sign in again.")
			return m, nil
		}
		if m.decks.Apply(res) {
			m.clampCursor()
		}
		return m, nil

	case MsgDosFetched:
		res := msg.data.(tasks.DosResult)
		if tasks.IsAuthError(res.Err) {
			m.signOut("Your session has expired. Sign in again.")
			return m, nil
		}
		m.dos.Apply(res)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSignInKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		if m.loggingIn {
			return m, nil
		}
		m.loggingIn = true
		m.status = "Continue in your browser…"
		return m, m.login()
	}
	return m, nil
}

func (m *Model) handleDeckKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchDecks(m.decks.Refresh())
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.decks.Decks())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.enter):
		decks := m.decks.Decks()
		if m.cursor < len(decks) {
			return m, m.fetchDos(m.dos.Select(decks[m.cursor].ID))
		}
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.logout) {
		m.searching = false
		m.search.Blur()
		return m, m.logout()
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, tea.Batch(cmd, m.fetchDecks(m.decks.SetSearch(m.search.Value())))
}

// signedIn moves to the decks view and starts the first fetch.
func (m *Model) signedIn() tea.Cmd {
	m.view = DecksView
	m.status = ""
	return m.fetchDecks(m.decks.SetAuthenticated(true))
}

// signOut drops all deck state and returns to the sign-in screen.
func (m *Model) signOut(status string) {
	m.decks.SetAuthenticated(false)
	m.dos.Clear()
	m.view = SignInView
	m.searching = false
	m.search.Blur()
	m.cursor = 0
	m.loggingIn = false
	m.status = status
}

func (m *Model) clampCursor() {
	n := len(m.decks.Decks())
	switch {
	case n == 0:
		m.cursor = 0
	case m.cursor >= n:
		m.cursor = n - 1
	}
}

func (m *Model) fetchDecks(req *tasks.DeckRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	return func() tea.Msg {
		return decksFetchedMsg(m.decks.Run(req))
	}
}

func (m *Model) fetchDos(req *tasks.DosRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	return func() tea.Msg {
		return dosFetchedMsg(m.dos.Run(req))
	}
}

func (m *Model) login() tea.Cmd {
	return func() tea.Msg {
		return loggedInMsg(m.session.Login(m.ctx))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		url, err := m.session.Logout(m.ctx)
		if m.openURL != nil && url != "" {
			if oerr := m.openURL(url); oerr != nil {
				m.logger.Warn("failed to open logout page", "error", oerr)
			}
		}
		return loggedOutMsg(url, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SignInView:
		return m.renderSignIn()
	case DecksView:
		return m.renderDecks()
	default:
		return ""
	}
}

func (m *Model) renderSignIn() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("DoDeck"))
	b.WriteString("\n")
	b.WriteString("Sign in to manage your Decks and Dos.")
	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(styles.warn.Render(m.status))
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit}))
	return b.String()
}

func (m *Model) renderDecks() string {
	paneWidth := 38
	if m.width > 0 {
		paneWidth = max(20, m.width/2-4)
	}

	decksPane := styles.pane
	if !m.searching {
		decksPane = styles.active
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		decksPane.Width(paneWidth).Render(m.renderDeckList()),
		styles.pane.Width(paneWidth).Render(m.renderDos()),
	)

	footer := fmt.Sprintf("Hello %s", m.session.User().Display())
	return fmt.Sprintf("%s\n%s\n\n%s", panes, styles.ok.Render(footer), m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) renderDeckList() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Decks"))
	b.WriteString("  ")
	b.WriteString(styles.help.Render("+ New"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	decks := m.decks.Decks()
	if len(decks) == 0 {
		if m.decks.State() == tasks.Loading {
			b.WriteString(styles.help.Render("Loading…"))
		} else {
			b.WriteString("No decks yet.")
		}
		return b.String()
	}

	selected := m.dos.DeckID()
	for i, d := range decks {
		item := deckItem{deck: d}
		pointer := "  "
		if i == m.cursor {
			pointer = "> "
		}
		title := item.Title()
		if d.ID != "" && d.ID == selected {
			title = styles.selected.Render(title)
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n", pointer, title, styles.help.Render(item.Description()))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderDos() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Dos"))
	b.WriteString("  ")
	b.WriteString(styles.help.Render("+ Add Do"))
	b.WriteString("\n")

	if m.dos.DeckID() == "" {
		b.WriteString(styles.help.Render("Select a deck to see its dos."))
		return b.String()
	}

	dos := m.dos.Dos()
	if len(dos) == 0 {
		b.WriteString("No dos yet.")
		return b.String()
	}
	for _, d := range dos {
		b.WriteString(doItem{do: d}.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
