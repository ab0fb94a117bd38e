package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/dodeck/internal/shared"
)

// TokenSource supplies bearer tokens. [session.Provider] implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// APIService makes raw HTTP requests to the deck service.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
}

// NewAPIService creates a new API service instance for the deck service.
// A nil tokens source sends requests without an Authorization header.
func NewAPIService(baseURL string, client *http.Client, tokens TokenSource, timeout time.Duration) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		tokens:     tokens,
		timeout:    timeout,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs an authorized GET request to path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	return a.get(ctx, path, query, true)
}

func (a *APIService) get(ctx context.Context, path string, query url.Values, authorize bool) (*APIResponse, error) {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if authorize && a.tokens != nil {
		token, err := a.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// StatusError is a non-2xx response from the deck service.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: status %d", shared.ErrAPIRequest, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", shared.ErrAPIRequest, e.StatusCode, e.Detail)
}

// Is matches [shared.ErrAPIRequest] for every status, plus the sentinel of known statuses.
func (e *StatusError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrDeckNotFound:
		return e.StatusCode == http.StatusNotFound
	case shared.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

func statusError(resp *APIResponse) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode}
	if m, ok := resp.JSONData.(map[string]any); ok {
		for _, key := range []string{"detail", "error"} {
			if s, ok := m[key].(string); ok && s != "" {
				se.Detail = s
				break
			}
		}
	}
	return se
}
