package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token *Token
	err   error
}

func (s staticTokens) Token(_ context.Context) (*Token, error) {
	return s.token, s.err
}

func newTestRESTClient() *Client {
	return &Client{
		tokens:     staticTokens{token: &Token{AccessToken: "test-token"}},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 3,
	}
}

func TestBearerHeaderApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	c := newTestRESTClient()
	var result map[string]bool
	require.NoError(t, c.get(context.Background(), server.URL, &result))
	assert.True(t, result["ok"])
}

func TestPostMarshalsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Notes", body["title"])

		w.Write([]byte(`{"id": "doc-1"}`))
	}))
	defer server.Close()

	c := newTestRESTClient()
	var result map[string]string
	require.NoError(t, c.post(context.Background(), server.URL, map[string]string{"title": "Notes"}, &result))
	assert.Equal(t, "doc-1", result["id"])
}

func TestRetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestRESTClient()
	require.NoError(t, c.get(context.Background(), server.URL, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryOn503(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestRESTClient()
	require.NoError(t, c.get(context.Background(), server.URL, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestMaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestRESTClient()
	c.maxRetries = 1

	err := c.get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (1) exceeded")
}

func TestErrorEnvelopeParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": 404, "message": "File not found: abc", "status": "NOT_FOUND"}}`))
	}))
	defer server.Close()

	c := newTestRESTClient()
	err := c.get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, "google api error (404): File not found: abc", err.Error())
}

func TestErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestRESTClient()
	err := c.get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google api error (400): Bad Request")
}

func TestUnauthorizedSuggestsLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestRESTClient()
	err := c.get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skills google auth login")
}

func TestTokenSourceErrorPropagates(t *testing.T) {
	c := &Client{
		tokens:     staticTokens{err: ErrNotLoggedIn},
		httpClient: &http.Client{},
		maxRetries: 1,
	}

	err := c.get(context.Background(), "http://unused.invalid", nil)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 7*time.Second, retryDelay("7", 0))
	assert.Equal(t, time.Second, retryDelay("", 0))
	assert.Equal(t, 2*time.Second, retryDelay("bogus", 1))
	assert.Equal(t, 30*time.Second, retryDelay("", 12))
}
