package server

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuerJWKSTTL    = time.Hour
	overrideJWKSTTL  = 5 * time.Minute
	jwksFetchTimeout = 5 * time.Second
)

// signingKey returns the RSA verification key with the given kid.
func signingKey(set *jose.JSONWebKeySet, kid string) (*rsa.PublicKey, error) {
	for _, k := range set.Key(kid) {
		if !k.Valid() || !k.IsPublic() {
			continue
		}
		if pub, ok := k.Key.(*rsa.PublicKey); ok {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("no matching rsa jwk for kid %q", kid)
}

// KeySource loads and caches the signing keys of the identity provider.
//
// A local file or URL override takes precedence over {issuer}/.well-known/jwks.json.
// Override keys are cached for 5 minutes, issuer keys for an hour.
type KeySource struct {
	issuer string
	path   string
	url    string
	client *http.Client

	mu     sync.Mutex
	keys   *jose.JSONWebKeySet
	expiry time.Time
	now    func() time.Time
}

// NewKeySource creates a [KeySource]. client defaults to one with a 5 second timeout.
func NewKeySource(issuer, path, url string, client *http.Client) *KeySource {
	if client == nil {
		client = &http.Client{Timeout: jwksFetchTimeout}
	}
	return &KeySource{
		issuer: strings.TrimRight(issuer, "/"),
		path:   path,
		url:    url,
		client: client,
		now:    time.Now,
	}
}

// Keys returns the cached key set, reloading it once expired.
func (s *KeySource) Keys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.keys != nil && now.Before(s.expiry) {
		return s.keys, nil
	}

	keys, ttl, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.keys = keys
	s.expiry = now.Add(ttl)
	return keys, nil
}

func (s *KeySource) load(ctx context.Context) (*jose.JSONWebKeySet, time.Duration, error) {
	if s.path != "" {
		if data, err := os.ReadFile(s.path); err == nil {
			var keys jose.JSONWebKeySet
			if err := json.Unmarshal(data, &keys); err != nil {
				return nil, 0, fmt.Errorf("%w: jwks file %s: %v", shared.ErrInvalidConfig, s.path, err)
			}
			return &keys, overrideJWKSTTL, nil
		}
	}
	if s.url != "" {
		keys, err := s.fetch(ctx, s.url)
		return keys, overrideJWKSTTL, err
	}
	keys, err := s.fetch(ctx, s.issuer+"/.well-known/jwks.json")
	return keys, issuerJWKSTTL, err
}

func (s *KeySource) fetch(ctx context.Context, url string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: jwks: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: jwks returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	var keys jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return nil, fmt.Errorf("%w: jwks: %v", shared.ErrInvalidResponse, err)
	}
	return &keys, nil
}

// Principal is the verified caller of a deck service request.
type Principal struct {
	Subject       string
	Email         string
	EmailVerified bool
	Claims        jwt.MapClaims
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by [Authenticator.Middleware].
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// apiError is a handler failure answered as {"detail": detail}.
type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d %s", e.status, e.detail) }

var (
	errEmailRequired    = &apiError{http.StatusForbidden, "email_required"}
	errEmailNotVerified = &apiError{http.StatusForbidden, "email_not_verified"}
)

// RequireEmail returns the caller's email, failing with 403 email_required when there is none
// and with 403 email_not_verified when verification is required.
func (p *Principal) RequireEmail(requireVerified bool) (string, error) {
	if p.Email == "" {
		return "", errEmailRequired
	}
	if requireVerified && !p.EmailVerified {
		return "", errEmailNotVerified
	}
	return p.Email, nil
}

// AccessEmail is the email used to match collaborator rows: only a verified one counts.
func (p *Principal) AccessEmail() string {
	if !p.EmailVerified {
		return ""
	}
	return p.Email
}

// Authenticator verifies RS256 bearer tokens issued for the deck service audience.
type Authenticator struct {
	issuer   string
	audience string
	keys     *KeySource
	logger   *log.Logger
}

// NewAuthenticator creates an [Authenticator]. Tokens must carry iss "{issuer}/" and aud audience.
func NewAuthenticator(issuer, audience string, keys *KeySource, logger *log.Logger) *Authenticator {
	return &Authenticator{
		issuer:   strings.TrimRight(issuer, "/"),
		audience: audience,
		keys:     keys,
		logger:   logger,
	}
}

// Verify checks the token signature and standard claims and builds the [Principal].
func (a *Authenticator) Verify(ctx context.Context, raw string) (*Principal, error) {
	keys, err := a.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return signingKey(keys, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer+"/"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}

	user := models.UserFromClaims(claims)
	return &Principal{
		Subject:       user.Subject,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Claims:        claims,
	}, nil
}

// Middleware rejects requests without a valid bearer token and stores the [Principal] in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if a.issuer == "" || a.audience == "" {
			writeDetail(w, http.StatusInternalServerError, "server not configured")
			return
		}

		p, err := a.Verify(r.Context(), raw)
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			a.logger.Debug("rejected token", "error", err)
			writeDetail(w, http.StatusUnauthorized, "invalid token")
			return
		case err != nil:
			a.logger.Error("failed to load signing keys", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
			return
		case p.Subject == "":
			writeDetail(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
