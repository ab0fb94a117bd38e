package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
)

// CredentialRepository persists [models.Credential] rows in the credentials table.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get loads the credential stored under key, returning [shared.ErrNoCredential] when absent.
func (r *CredentialRepository) Get(ctx context.Context, key string) (*models.Credential, error) {
	query := `
		SELECT key, access_token, refresh_token, id_token, token_type, expiry
		FROM credentials
		WHERE key = ?
	`

	var (
		cred   models.Credential
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&cred.Key, &cred.AccessToken, &cred.RefreshToken, &cred.IDToken, &cred.TokenType, &expiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	if expiry.Valid {
		cred.Expiry = expiry.Time
	}
	return &cred, nil
}

// Save inserts or replaces the credential for cred.Key.
func (r *CredentialRepository) Save(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var expiry any
	if !cred.Expiry.IsZero() {
		expiry = cred.Expiry.UTC()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO credentials (key, access_token, refresh_token, id_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			id_token = excluded.id_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		cred.Key, cred.AccessToken, cred.RefreshToken, cred.IDToken, cred.TokenType, expiry, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete removes the credential stored under key. Deleting a missing key is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
