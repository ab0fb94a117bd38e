// Package repositories implements SQLite persistence for DoDeck.
//
// Key Implementations:
//   - [CredentialRepository] : cached identity provider tokens keyed by session name
//   - [DeckRepository] : read access to decks, collaborators and dos scoped to a caller
//
// Fixtures for local development are imported with [DeckRepository.Import] from TOML files
// parsed by [LoadFixture]. Deck and do ids are generated UUIDs.
package repositories
