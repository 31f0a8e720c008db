// Package gitlab shells out to the GitLab CLI (glab) and decodes its
// --output json payloads.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dverbeek/agent-skills/internal/executor"
)

const defaultLimit = 30

// runFunc executes glab and returns its stdout.
type runFunc func(ctx context.Context, args []string, stdin string) (string, error)

// Client wraps the glab binary. Repo, when set, scopes every command
// to that OWNER/REPO instead of the current directory's repository.
type Client struct {
	repo string
	run  runFunc
}

// NewClient returns a Client running the glab binary from PATH.
func NewClient(repo string) *Client {
	var r executor.Runner
	return &Client{
		repo: repo,
		run: func(ctx context.Context, args []string, stdin string) (string, error) {
			return r.Output(ctx, "glab", args, executor.Options{Stdin: stdin})
		},
	}
}

func (c *Client) scoped(args []string) []string {
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}
	return args
}

func (c *Client) list(ctx context.Context, args []string, result any) error {
	out, err := c.run(ctx, c.scoped(args), "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(out), result); err != nil {
		return fmt.Errorf("failed to parse glab output: %w", err)
	}
	return nil
}

// stateFlag maps a state name to the glab list flag. glab filters with
// dedicated flags rather than a --state value; "opened" is its default
// and needs no flag.
func stateFlag(state string) string {
	switch state {
	case "closed":
		return "--closed"
	case "merged":
		return "--merged"
	case "all":
		return "--all"
	default:
		return ""
	}
}

// MRs lists merge requests filtered by state (opened, closed, merged,
// all).
func (c *Client) MRs(ctx context.Context, state string, limit int) ([]MergeRequest, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	args := []string{"mr", "list", "--output", "json", "--per-page", strconv.Itoa(limit)}
	if flag := stateFlag(state); flag != "" {
		args = append(args, flag)
	}

	var mrs []MergeRequest
	if err := c.list(ctx, args, &mrs); err != nil {
		return nil, err
	}
	return mrs, nil
}

// MR fetches a single merge request with its description.
func (c *Client) MR(ctx context.Context, iid int) (*MergeRequest, error) {
	args := []string{"mr", "view", strconv.Itoa(iid), "--output", "json"}
	var mr MergeRequest
	if err := c.list(ctx, args, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// Issues lists issues filtered by state (opened, closed, all).
func (c *Client) Issues(ctx context.Context, state string, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	args := []string{"issue", "list", "--output", "json", "--per-page", strconv.Itoa(limit)}
	if flag := stateFlag(state); flag != "" && flag != "--merged" {
		args = append(args, flag)
	}

	var issues []Issue
	if err := c.list(ctx, args, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// Issue fetches a single issue with its description.
func (c *Client) Issue(ctx context.Context, iid int) (*Issue, error) {
	args := []string{"issue", "view", strconv.Itoa(iid), "--output", "json"}
	var issue Issue
	if err := c.list(ctx, args, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Pipelines lists recent CI pipelines, optionally filtered by status
// (running, success, failed, canceled).
func (c *Client) Pipelines(ctx context.Context, status string, limit int) ([]Pipeline, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	args := []string{"ci", "list", "--output", "json", "--per-page", strconv.Itoa(limit)}
	if status != "" {
		args = append(args, "--status", status)
	}

	var pipelines []Pipeline
	if err := c.list(ctx, args, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// API forwards a raw request to the GitLab REST API through glab api
// and returns the response body verbatim.
func (c *Client) API(ctx context.Context, method, path string, headers []string, body string) (string, error) {
	args := []string{"api", path}
	if method != "" && method != "GET" {
		args = append(args, "-X", method)
	}
	for _, h := range headers {
		args = append(args, "-H", h)
	}
	if body != "" {
		args = append(args, "--input", "-")
	}
	return c.run(ctx, args, body)
}
