package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/repositories"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/zalando/go-keyring"
)

// DefaultKey names the credential of the default session.
const DefaultKey = "default"

// KeyringService is the keychain service name credentials are filed under.
const KeyringService = "dodeck"

// CredentialStore keeps one durable credential.
// Load returns [shared.ErrNoCredential] when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*models.Credential, error)
	Save(ctx context.Context, cred *models.Credential) error
	Clear(ctx context.Context) error
}

// DatabaseStore keeps the credential in the SQLite credentials table.
type DatabaseStore struct {
	repo *repositories.CredentialRepository
	key  string
}

// NewDatabaseStore stores the credential under key.
func NewDatabaseStore(repo *repositories.CredentialRepository, key string) *DatabaseStore {
	return &DatabaseStore{repo: repo, key: key}
}

func (s *DatabaseStore) Load(ctx context.Context) (*models.Credential, error) {
	return s.repo.Get(ctx, s.key)
}

func (s *DatabaseStore) Save(ctx context.Context, cred *models.Credential) error {
	cred.Key = s.key
	return s.repo.Save(ctx, cred)
}

func (s *DatabaseStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}

// KeyringStore keeps the credential as JSON in the OS keychain.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore files the credential under service/user.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

type keyringRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Expiry       int64  `json:"expiry,omitempty"`
}

func (s *KeyringStore) Load(_ context.Context) (*models.Credential, error) {
	secret, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, shared.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}

	var rec keyringRecord
	if err := json.Unmarshal([]byte(secret), &rec); err != nil {
		return nil, fmt.Errorf("%w: keychain entry is not a credential: %v", shared.ErrInvalidInput, err)
	}

	cred := &models.Credential{
		Key:          s.user,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		IDToken:      rec.IDToken,
		TokenType:    rec.TokenType,
	}
	if rec.Expiry > 0 {
		cred.Expiry = time.Unix(rec.Expiry, 0)
	}
	return cred, nil
}

func (s *KeyringStore) Save(_ context.Context, cred *models.Credential) error {
	cred.Key = s.user
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rec := keyringRecord{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		IDToken:      cred.IDToken,
		TokenType:    cred.TokenType,
	}
	if !cred.Expiry.IsZero() {
		rec.Expiry = cred.Expiry.Unix()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := keyring.Set(s.service, s.user, string(data)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear(_ context.Context) error {
	err := keyring.Delete(s.service, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keychain entry: %w", err)
	}
	return nil
}

// MemoryStore keeps the credential in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.Mutex
	cred *models.Credential
}

func (s *MemoryStore) Load(_ context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, shared.ErrNoCredential
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.cred = &c
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

// NewStore picks the store named by kind: "database" (default), "keyring" or "memory".
func NewStore(kind string, repo *repositories.CredentialRepository) (CredentialStore, error) {
	switch kind {
	case "", "database":
		if repo == nil {
			return nil, fmt.Errorf("%w: database credential store needs a database", shared.ErrInvalidConfig)
		}
		return NewDatabaseStore(repo, DefaultKey), nil
	case "keyring":
		return NewKeyringStore(KeyringService, DefaultKey), nil
	case "memory":
		return &MemoryStore{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown credential store %q", shared.ErrInvalidConfig, kind)
	}
}
