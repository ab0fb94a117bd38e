// Package services is the HTTP client side of the DoDeck deck service.
//
// [APIService] performs raw GET requests against the service base URL, attaching a bearer token
// from a [TokenSource] and bounding each request with the configured timeout.
//
// [DeckClient] builds typed calls on top of it:
//   - [DeckClient.ListDecks] : GET /v1/decks with an optional search prefix
//   - [DeckClient.GetDeck] : GET /v1/decks/{id}
//   - [DeckClient.ListDos] : GET /v1/decks/{id}/dos
//   - [DeckClient.Health] : GET /healthz, unauthenticated
//
// # Error Handling
//
//   - non-2xx responses return a [StatusError] that matches [shared.ErrAPIRequest], plus
//     [shared.ErrDeckNotFound] for 404 and [shared.ErrForbidden] for 403
//   - bodies that are not JSON return [shared.ErrInvalidResponse]
//   - list entries failing validation are logged and skipped
//   - token errors pass through unchanged, so [shared.ErrNotAuthenticated] reaches the caller
//
// Nothing is retried.
package services
