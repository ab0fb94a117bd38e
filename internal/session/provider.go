package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/server"
	"github.com/desertthunder/dodeck/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested when the configuration names none.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

const defaultLoginTimeout = 2 * time.Minute

// Options configures a [Provider].
type Options struct {
	Auth         shared.AuthConfig
	CallbackAddr string // host:port of the loopback callback server
	Store        CredentialStore
	Logger       *log.Logger
	OpenURL      shared.URLOpener     // defaults to [shared.OpenBrowser]
	Prompt       func(authURL string) // called when the browser could not be opened
	HTTPClient   *http.Client         // used for token endpoint calls when set
	LoginTimeout time.Duration
}

// Provider owns the authentication session.
type Provider struct {
	auth         shared.AuthConfig
	oauth        *oauth2.Config
	callbackAddr string
	store        CredentialStore
	logger       *log.Logger
	openURL      shared.URLOpener
	prompt       func(string)
	httpClient   *http.Client
	loginTimeout time.Duration

	mu    sync.Mutex
	token *oauth2.Token
	user  *models.User
}

// NewProvider builds a signed-out [Provider]. Call [Provider.Restore] to load a stored credential.
func NewProvider(opts Options) *Provider {
	scopes := opts.Auth.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	base := issuerURL(opts.Auth.Domain)
	p := &Provider{
		auth: opts.Auth,
		oauth: &oauth2.Config{
			ClientID: opts.Auth.ClientID,
			Scopes:   scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		callbackAddr: opts.CallbackAddr,
		store:        opts.Store,
		logger:       opts.Logger,
		openURL:      opts.OpenURL,
		prompt:       opts.Prompt,
		httpClient:   opts.HTTPClient,
		loginTimeout: opts.LoginTimeout,
	}

	if p.store == nil {
		p.store = &MemoryStore{}
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.openURL == nil {
		p.openURL = shared.OpenBrowser
	}
	if p.loginTimeout <= 0 {
		p.loginTimeout = defaultLoginTimeout
	}
	return p
}

// issuerURL turns an identity provider domain into an origin, keeping an explicit scheme.
func issuerURL(domain string) string {
	d := strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return d
	}
	return "https://" + d
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Restore loads the stored credential. It reports whether a session was restored.
func (p *Provider) Restore(ctx context.Context) (bool, error) {
	cred, err := p.store.Load(ctx)
	if errors.Is(err, shared.ErrNoCredential) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load credential: %w", err)
	}
	if err := cred.Validate(); err != nil {
		p.logger.Warn("discarding unusable credential", "error", err)
		return false, nil
	}

	token := cred.Token()
	user := p.userFor(token)

	p.mu.Lock()
	p.token, p.user = token, user
	p.mu.Unlock()

	p.logger.Debug("restored session", "user", user.Display(), "expiry", token.Expiry)
	return true, nil
}

// AuthURL builds the hosted login page URL for the given redirect, state and PKCE verifier.
func (p *Provider) AuthURL(redirectURL, state, verifier string) string {
	config := *p.oauth
	config.RedirectURL = redirectURL

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if p.auth.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", p.auth.Audience))
	}
	return config.AuthCodeURL(state, opts...)
}

// Login runs the browser sign-in flow and establishes the session.
//
// A loopback server receives the authorization code on /callback; the flow gives up after the
// login timeout or when ctx is done.
func (p *Provider) Login(ctx context.Context) (*models.User, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	ln, err := net.Listen("tcp", p.callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	redirectURL := callbackURL(p.callbackAddr, ln.Addr())
	config := *p.oauth
	config.RedirectURL = redirectURL

	handler := server.NewOAuthHandler(&config, state, oauth2.VerifierOption(verifier))
	router := server.NewBasicRouter()
	router.Use(p.withHTTPClient)
	router.Handler(handler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		p.logger.Infof("starting callback server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := p.AuthURL(redirectURL, state, verifier)
	if err := p.openURL(authURL); err != nil {
		p.logger.Warnf("failed to open browser automatically %v", err)
		if p.prompt != nil {
			p.prompt(authURL)
		}
	}

	timeout := time.NewTimer(p.loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, p.loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return p.establish(ctx, result.Token), nil
}

func callbackURL(configured string, bound net.Addr) string {
	host, _, _ := net.SplitHostPort(configured)
	if host == "" {
		host = "127.0.0.1"
	}
	_, port, _ := net.SplitHostPort(bound.String())
	return "http://" + net.JoinHostPort(host, port) + "/callback"
}

func (p *Provider) withHTTPClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(p.clientContext(r.Context())))
	})
}

// establish installs token as the current session and persists it.
func (p *Provider) establish(ctx context.Context, token *oauth2.Token) *models.User {
	user := p.userFor(token)

	p.mu.Lock()
	p.token, p.user = token, user
	p.mu.Unlock()

	if err := p.store.Save(ctx, models.NewCredential(DefaultKey, token)); err != nil {
		p.logger.Warn("failed to persist credential", "error", err)
	}
	p.logger.Info("signed in", "user", user.Display())
	return user
}

func (p *Provider) userFor(token *oauth2.Token) *models.User {
	idToken := idTokenOf(token)
	if idToken == "" {
		return nil
	}
	user, err := UserFromIDToken(idToken)
	if err != nil {
		p.logger.Warn("ignoring unreadable id token", "error", err)
		return nil
	}
	return user
}

// Logout clears the session and the stored credential.
// It returns the identity provider logout URL for the browser.
func (p *Provider) Logout(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.clearLocked(ctx); err != nil {
		return p.LogoutURL(), err
	}
	p.logger.Info("signed out")
	return p.LogoutURL(), nil
}

// LogoutURL is https://{domain}/v2/logout with client_id and returnTo.
func (p *Provider) LogoutURL() string {
	q := url.Values{}
	q.Set("client_id", p.auth.ClientID)
	if p.auth.ReturnTo != "" {
		q.Set("returnTo", p.auth.ReturnTo)
	}
	return issuerURL(p.auth.Domain) + "/v2/logout?" + q.Encode()
}

func (p *Provider) clearLocked(ctx context.Context) error {
	p.token, p.user = nil, nil
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a session is held.
func (p *Provider) IsAuthenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil
}

// User returns a copy of the signed-in user's profile, or nil.
func (p *Provider) User() *models.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// Expiry returns when the current access token expires. Zero when signed out or unknown.
func (p *Provider) Expiry() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return time.Time{}
	}
	return p.token.Expiry
}

// Token returns a valid access token, refreshing it when expired.
//
// Concurrent callers share one refresh. A refresh rejected by the identity provider, or a
// session with no refresh token, ends the session with [shared.ErrNotAuthenticated]. Transport
// failures return [shared.ErrRefreshFailed] and keep the session.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return "", shared.ErrNotAuthenticated
	}
	if p.token.Valid() {
		return p.token.AccessToken, nil
	}

	if p.token.RefreshToken == "" {
		if err := p.clearLocked(ctx); err != nil {
			p.logger.Warn("failed to clear credential", "error", err)
		}
		return "", fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, shared.ErrNoRefreshToken)
	}

	previous := p.token
	fresh, err := p.oauth.TokenSource(p.clientContext(ctx), previous).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			p.logger.Warn("refresh rejected, signing out", "code", re.ErrorCode)
			if clearErr := p.clearLocked(ctx); clearErr != nil {
				p.logger.Warn("failed to clear credential", "error", clearErr)
			}
			return "", fmt.Errorf("%w: %w: %v", shared.ErrNotAuthenticated, shared.ErrRefreshFailed, err)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if idTokenOf(fresh) == "" && idTokenOf(previous) != "" {
		fresh = fresh.WithExtra(map[string]any{"id_token": idTokenOf(previous)})
	}

	p.token = fresh
	if user := p.userFor(fresh); user != nil {
		p.user = user
	}

	if err := p.store.Save(ctx, models.NewCredential(DefaultKey, fresh)); err != nil {
		p.logger.Warn("failed to persist refreshed credential", "error", err)
	}
	p.logger.Debug("refreshed access token", "expiry", fresh.Expiry, "rotated", fresh.RefreshToken != previous.RefreshToken)
	return fresh.AccessToken, nil
}
