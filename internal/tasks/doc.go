// Package tasks drives the deck data flows of the client.
//
// # Deck Feed
//
// [DeckFeed] is the state machine behind the Decks pane:
//
//	Unauthenticated ── signed in ──▶ Loading ── 2xx ──▶ Populated(items)
//	                                    │ ◀── search changed ──┘
//	                                    └── failure ──▶ Populated(previous items)
//	Populated ── signed out ──▶ Unauthenticated (list cleared)
//
// Every fetch carries a sequence number. Issuing a request cancels the context of the one it
// supersedes, and [DeckFeed.Apply] discards any result that is not from the latest request, so
// the list always equals the last accepted response. Setting the same search term twice issues
// nothing, and nothing is fetched while signed out.
//
// [DosFeed] applies the same sequencing to the dos of the selected deck.
//
// # Bulk Export
//
// [ExportDecks] writes every visible deck with its dos to a directory in one of the
// [formatter.Format] formats. Dos are fetched under a rate limit while a worker pool writes
// files; progress is reported through non-blocking [ProgressUpdate] sends and a manifest
// summarizes the run.
package tasks
