// Package gerrit talks to a Gerrit Code Review server over its REST
// API, with an SSH command fallback for installations that expose
// only the SSH interface.
package gerrit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dverbeek/agent-skills/internal/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// xssiPrefix guards every Gerrit JSON response and must be stripped
// before decoding.
var xssiPrefix = []byte(")]}'")

// Options tunes the HTTP behavior of a Client.
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

// Client is a Gerrit REST client. With a username and HTTP password it
// uses Basic auth against the /a/ endpoint prefix; without them it
// reads anonymously.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client for the Gerrit server at baseURL.
func NewClient(baseURL, username, password string, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
	}
}

func (c *Client) authenticated() bool {
	return c.username != "" && c.password != ""
}

// apiPath prepends the authenticated endpoint prefix when credentials
// are configured.
func (c *Client) apiPath(path string) string {
	if c.authenticated() {
		return "/a" + path
	}
	return path
}

// Query searches changes with a Gerrit query string such as
// "status:open project:tools owner:self".
func (c *Client) Query(ctx context.Context, query string, limit int) ([]ChangeInfo, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("n", strconv.Itoa(limit))
	}

	var changes []ChangeInfo
	if err := c.do(ctx, http.MethodGet, "/changes/", params, nil, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Change fetches one change with its current revision, accounts and
// message log. The id may be a change number or a full
// project~branch~Change-Id triplet.
func (c *Client) Change(ctx context.Context, id string) (*ChangeInfo, error) {
	params := url.Values{}
	params["o"] = []string{"CURRENT_REVISION", "DETAILED_ACCOUNTS", "MESSAGES"}

	var change ChangeInfo
	if err := c.do(ctx, http.MethodGet, "/changes/"+url.PathEscape(id), params, nil, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

// Review posts a review on the current revision of a change.
func (c *Client) Review(ctx context.Context, id string, input ReviewInput) (*ReviewResult, error) {
	path := "/changes/" + url.PathEscape(id) + "/revisions/current/review"
	var result ReviewResult
	if err := c.do(ctx, http.MethodPost, path, nil, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Abandon abandons a change with an optional message.
func (c *Client) Abandon(ctx context.Context, id, message string) (*ChangeInfo, error) {
	body := map[string]string{}
	if message != "" {
		body["message"] = message
	}

	var change ChangeInfo
	if err := c.do(ctx, http.MethodPost, "/changes/"+url.PathEscape(id)+"/abandon", nil, body, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	urlStr := c.baseURL + c.apiPath(path)
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.authenticated() {
			req.SetBasicAuth(c.username, c.password)
		}

		logger.Debugw("gerrit request", "method", method, "url", urlStr, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			delay := retryAfterDuration(resp.Header.Get("Retry-After"), attempt)
			logger.Debugw("rate limited, backing off", "delay", delay, "attempt", attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("authentication failed for %s; check username and HTTP password", c.baseURL)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d on %s %s: %s", resp.StatusCode, method, path, strings.TrimSpace(string(data)))
		}

		if result == nil {
			return nil
		}
		data = bytes.TrimPrefix(data, xssiPrefix)
		data = bytes.TrimLeft(data, "\n")
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded for %s %s", c.maxRetries, method, path)
}

// retryAfterDuration converts a Retry-After header into a wait
// duration, falling back to exponential backoff capped at 30s.
func retryAfterDuration(header string, attempt int) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	delay := time.Second << attempt
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
