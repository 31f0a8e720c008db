package atlassian

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AuthError indicates that authentication failed or expired against a
// service. It is returned when a 401 response is received.
type AuthError struct {
	BaseURL string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.BaseURL, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx response from a REST API. Messages carries the
// human-readable errors parsed from the Atlassian error payload; Body
// holds the raw response when no messages could be parsed.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Messages   []string
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf(
			"API error (%d) on %s %s: %s",
			e.StatusCode, e.Method, e.Path, strings.Join(e.Messages, "; "),
		)
	}
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Body,
	)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorPayload covers the error shapes the Atlassian products return:
// Jira uses errorMessages/errors, Confluence uses a single message.
type errorPayload struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
	Message       string            `json:"message"`
}

// parseErrorMessages extracts human-readable messages from an error
// response body. Returns nil when the body has no recognizable shape.
func parseErrorMessages(body []byte) []string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	var messages []string
	messages = append(messages, payload.ErrorMessages...)
	fields := make([]string, 0, len(payload.Errors))
	for field := range payload.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, payload.Errors[field]))
	}
	if len(messages) == 0 && payload.Message != "" {
		messages = append(messages, payload.Message)
	}
	return messages
}
