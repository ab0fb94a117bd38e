// Package session owns the signed-in state of the DoDeck client.
//
// A [Provider] runs the OAuth2 authorization code flow with PKCE against an Auth0-compatible
// identity provider. The browser is sent to the hosted login page and the code is received by a
// loopback server on /callback (see [server.OAuthHandler]).
//
// The refresh credential survives restarts through a [CredentialStore]:
//   - [DatabaseStore] : the credentials table of the local SQLite database
//   - [KeyringStore] : the operating system keychain
//
// [Provider.Token] hands out a valid access token, refreshing through the stored refresh token
// when needed. Rotated tokens are persisted. When refresh is impossible the session is cleared
// and [shared.ErrNotAuthenticated] is returned, so callers fall back to the sign-in screen.
package session
