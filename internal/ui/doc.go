// Package ui implements the DoDeck terminal interface using bubbletea's Elm architecture.
//
// The [Model] gates everything on the session:
//  1. [SignInView] : shown while signed out; enter starts the browser login
//  2. [DecksView] : Decks pane with search, Dos pane for the selected deck, "Hello {email}" footer
//
// Deck and do lists come from [tasks.DeckFeed] and [tasks.DosFeed]. Fetches run as tea.Cmd
// goroutines and come back as messages carrying the request sequence number, so a slow response
// can never overwrite a newer one. A fetch failing with [shared.ErrNotAuthenticated] returns to sign-in.
//
// Keys: "/" search, esc leave search, enter select deck (or sign in), ctrl+x sign out, q/ctrl+c quit.
package ui
