// Package models defines the DoDeck records shared by the client and the deck service.
//
// Wire records:
//   - [Deck] : deck summary as listed by GET /v1/decks
//   - [DeckDetail] : a single deck with owner and collaborators
//   - [Do] : an item within a deck
//
// Local records:
//   - [User] : profile claims of the signed-in user
//   - [Credential] : cached identity provider tokens
//
// Records arriving over the wire are checked with [Validate] before use; a record failing
// validation is rejected rather than rendered with placeholder values.
package models
