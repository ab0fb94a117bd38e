// Package server provides HTTP routing, middleware and handlers for both sides of DoDeck.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [BasicRouter] serves route groups from an [http.ServeMux]; method filtering comes from the
// "GET /path" patterns each [Handler] returns. [Middleware] added with Use wraps the whole mux,
// first added outermost.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the authorization code callback of the client login.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens
// (with the PKCE verifier), and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Deck Service
//
// [Service] is the read-only DoDeck API:
//
//	GET /healthz
//	GET /v1/decks?search=&visibility=mine|shared|all
//	GET /v1/decks/{id}
//	GET /v1/decks/{id}/dos
//
// Deck routes sit behind [Authenticator], which verifies RS256 bearer tokens against the identity
// provider's JWKS and stores a [Principal] in the request context.
//
// Errors are written as {"detail": "..."}; panics become 500 {"error": "internal_error"}.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
