// Package atlassian provides the shared REST plumbing for the Jira and
// Confluence skills: deployment detection (Cloud vs Server/DC), the
// authenticated request dispatcher with 429-aware retry, and the typed
// errors both products surface.
package atlassian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dverbeek/agent-skills/internal/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Options tunes the HTTP behavior of a Client. The zero value selects
// a 30 second timeout and 3 retries.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	return o
}

// Response is a raw REST response for passthrough callers.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is a thin HTTP client for Atlassian-family REST APIs. It
// handles authentication, JSON marshaling, and automatic retry with
// exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client rooted at baseURL. The auth may be nil
// for anonymous access.
func NewClient(baseURL string, auth Authenticator, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetries: opts.MaxRetries,
	}
}

// BaseURL returns the root URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an HTTP PUT request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do is the core JSON method: it dispatches the request and maps
// non-2xx responses to typed errors.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	header := http.Header{"Accept": []string{"application/json"}}
	if data != nil {
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, method, path, header, data)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{
			BaseURL: c.baseURL,
			Message: fmt.Sprintf("authentication failed (401) on %s %s", method, path),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Messages:   parseErrorMessages(resp.Body),
			Body:       string(resp.Body),
		}
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// Do dispatches a request and returns the response verbatim, retrying
// on 429. Non-2xx statuses are returned to the caller, not mapped to
// errors; the api passthrough subcommands rely on that.
func (c *Client) Do(
	ctx context.Context,
	method string,
	path string,
	header http.Header,
	body []byte,
) (*Response, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		for name, values := range header {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
		if c.auth != nil {
			c.auth.Apply(req)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		logger.Debugw("atlassian request",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"attempt", attempt,
		)

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			logger.Debugw("rate limited, backing off",
				"path", path,
				"wait", waitDuration.String(),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
		}, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
