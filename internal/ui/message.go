package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgDecksFetched MsgKind = iota
	MsgDosFetched
	MsgLoggedIn
	MsgLoggedOut
)

type loginResult struct {
	user *models.User
	err  error
}

type logoutResult struct {
	url string
	err error
}

// decksFetchedMsg is the constructor for [MsgDecksFetched]
func decksFetchedMsg(res tasks.DeckResult) Msg {
	return Msg{kind: MsgDecksFetched, data: res}
}

// dosFetchedMsg is the constructor for [MsgDosFetched]
func dosFetchedMsg(res tasks.DosResult) Msg {
	return Msg{kind: MsgDosFetched, data: res}
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(user *models.User, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: loginResult{user, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(url string, err error) Msg {
	return Msg{kind: MsgLoggedOut, data: logoutResult{url, err}}
}
