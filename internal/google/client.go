// Package google implements the Google Workspace integrations: Drive,
// Docs, Sheets and Calendar over their REST APIs, Gmail over IMAP.
// REST requests authenticate with a bearer token kept fresh by the
// TokenManager.
package google

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

// tokenSource yields a valid bearer token for each request.
type tokenSource interface {
	Token(ctx context.Context) (*Token, error)
}

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

// Client dispatches authenticated requests against the Google REST
// APIs, retrying on rate limits and server errors.
type Client struct {
	tokens     tokenSource
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client drawing bearer tokens from tokens.
func NewClient(tokens *TokenManager, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
	}
}

func (c *Client) get(ctx context.Context, urlStr string, result any) error {
	data, err := c.do(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	return decode(data, result)
}

func (c *Client) post(ctx context.Context, urlStr string, body, result any) error {
	data, err := c.do(ctx, http.MethodPost, urlStr, body)
	if err != nil {
		return err
	}
	return decode(data, result)
}

func decode(data []byte, result any) error {
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, urlStr string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		logger.Debugw("google request", "method", method, "url", urlStr, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		// Google reports rate limits as 429 and transient overload as
		// 5xx; both are retryable.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			delay := retryDelay(resp.Header.Get("Retry-After"), attempt)
			logger.Debugw("retrying google request", "status", resp.StatusCode, "delay", delay, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("google rejected the access token; run `skills google auth login`")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apiError(resp.StatusCode, data)
		}
		return data, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded for %s %s", c.maxRetries, method, urlStr)
}

// apiError extracts the message from Google's standard error envelope.
func apiError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("google api error (%d): %s", status, payload.Error.Message)
	}
	return fmt.Errorf("google api error (%d): %s", status, strings.TrimSpace(string(body)))
}

// retryDelay converts a Retry-After header into a wait duration,
// falling back to exponential backoff capped at 30s.
func retryDelay(header string, attempt int) time.Duration {
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
