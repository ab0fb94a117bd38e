package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/dodeck/internal/shared"
	tu "github.com/desertthunder/dodeck/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient, nil, 0)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL and Nil Client", func(t *testing.T) {
			srv := NewAPIService("", nil, nil, 0)

			if srv.baseURL != "http://127.0.0.1:8000" {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Attaches Bearer Token And Query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer token, got %q", got)
				}
				if got := r.URL.Query().Get("search"); got != "a b" {
					t.Errorf("expected search 'a b', got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil, tu.NewFakeTokenSource("tok", nil), time.Second)
			resp, err := srv.Get(context.Background(), "/test", url.Values{"search": {"a b"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || !resp.IsJSON || resp.JSONData == nil {
				t.Errorf("unexpected response %+v", resp)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil, nil, 0).Get(context.Background(), "/", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response not to be JSON")
			}
			if string(resp.Body) != "plain text" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})

		t.Run("Token Error Passes Through", func(t *testing.T) {
			srv := NewAPIService("http://example.invalid", nil, tu.NewFakeTokenSource("", shared.ErrNotAuthenticated), 0)
			_, err := srv.Get(context.Background(), "/v1/decks", nil)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Transport Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			_, err := NewAPIService("http://example.com", client, nil, 0).Get(context.Background(), "/", nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Body Read Error", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(&tu.FCloser{}), Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			_, err := NewAPIService("http://example.com", client, nil, 0).Get(context.Background(), "/", nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil, nil, 20*time.Millisecond).Get(context.Background(), "/", nil)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected deadline exceeded, got %v", err)
			}
		})
	})
}

func TestStatusError(t *testing.T) {
	tc := []struct {
		name      string
		status    int
		body      any
		notFound  bool
		forbidden bool
		detail    string
	}{
		{name: "404", status: 404, body: map[string]string{"detail": "deck_not_found"}, notFound: true, detail: "deck_not_found"},
		{name: "403", status: 403, body: map[string]string{"error": "forbidden"}, forbidden: true, detail: "forbidden"},
		{name: "500 without body", status: 500},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			resp := &APIResponse{StatusCode: tt.status}
			if tt.body != nil {
				data, _ := json.Marshal(tt.body)
				json.Unmarshal(data, &resp.JSONData)
				resp.IsJSON = true
			}

			err := error(statusError(resp))
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected every status error to match ErrAPIRequest")
			}
			if errors.Is(err, shared.ErrDeckNotFound) != tt.notFound {
				t.Errorf("ErrDeckNotFound match = %v", !tt.notFound)
			}
			if errors.Is(err, shared.ErrForbidden) != tt.forbidden {
				t.Errorf("ErrForbidden match = %v", !tt.forbidden)
			}

			var se *StatusError
			if !errors.As(err, &se) || se.Detail != tt.detail {
				t.Errorf("expected detail %q, got %+v", tt.detail, se)
			}
		})
	}
}
