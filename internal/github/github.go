// Package github shells out to the GitHub CLI (gh), which carries its
// own authentication, and decodes its --json output.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dverbeek/agent-skills/internal/executor"
)

const (
	prListFields = "number,title,state,author,headRefName,baseRefName,url,updatedAt"
	prViewFields = prListFields + ",body,additions,deletions,reviewDecision"

	issueListFields = "number,title,state,author,labels,url,updatedAt"
	issueViewFields = issueListFields + ",body,comments"

	repoFields = "name,owner,description,defaultBranchRef,isPrivate,url,stargazerCount"

	defaultLimit = 30
)

// runFunc executes gh and returns its stdout.
type runFunc func(ctx context.Context, args []string, stdin string) (string, error)

// Client wraps the gh binary. Repo, when set, scopes every command to
// that OWNER/REPO instead of the current directory's repository.
type Client struct {
	repo string
	run  runFunc
}

// NewClient returns a Client running the gh binary from PATH.
func NewClient(repo string) *Client {
	var r executor.Runner
	return &Client{
		repo: repo,
		run: func(ctx context.Context, args []string, stdin string) (string, error) {
			return r.Output(ctx, "gh", args, executor.Options{Stdin: stdin})
		},
	}
}

// scoped appends the --repo flag when the client is repo-scoped.
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
		return fmt.Errorf("failed to parse gh output: %w", err)
	}
	return nil
}

// PRs lists pull requests filtered by state (open, closed, merged, all).
func (c *Client) PRs(ctx context.Context, state string, limit int) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	args := []string{"pr", "list", "--state", state, "--limit", strconv.Itoa(limit), "--json", prListFields}
	var prs []PullRequest
	if err := c.list(ctx, args, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// PR fetches a single pull request with its body.
func (c *Client) PR(ctx context.Context, number int) (*PullRequest, error) {
	args := []string{"pr", "view", strconv.Itoa(number), "--json", prViewFields}
	var pr PullRequest
	if err := c.list(ctx, args, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// PRDiff returns the unified diff of a pull request.
func (c *Client) PRDiff(ctx context.Context, number int) (string, error) {
	return c.run(ctx, c.scoped([]string{"pr", "diff", strconv.Itoa(number)}), "")
}

// PRChecks returns the CI checks attached to a pull request's head
// commit.
func (c *Client) PRChecks(ctx context.Context, number int) ([]Check, error) {
	args := []string{"pr", "view", strconv.Itoa(number), "--json", "statusCheckRollup"}
	var payload struct {
		StatusCheckRollup []checkNode `json:"statusCheckRollup"`
	}
	if err := c.list(ctx, args, &payload); err != nil {
		return nil, err
	}

	checks := make([]Check, 0, len(payload.StatusCheckRollup))
	for _, node := range payload.StatusCheckRollup {
		checks = append(checks, node.check())
	}
	return checks, nil
}

// Issues lists issues filtered by state (open, closed, all).
func (c *Client) Issues(ctx context.Context, state string, limit int) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	args := []string{"issue", "list", "--state", state, "--limit", strconv.Itoa(limit), "--json", issueListFields}
	var issues []Issue
	if err := c.list(ctx, args, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// Issue fetches a single issue with its body and comments.
func (c *Client) Issue(ctx context.Context, number int) (*Issue, error) {
	args := []string{"issue", "view", strconv.Itoa(number), "--json", issueViewFields}
	var issue Issue
	if err := c.list(ctx, args, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Repo describes the scoped repository.
func (c *Client) Repo(ctx context.Context) (*Repository, error) {
	args := []string{"repo", "view", "--json", repoFields}
	var repo Repository
	if err := c.list(ctx, args, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// API forwards a raw request to the GitHub REST API through gh api and
// returns the response body verbatim. Headers are passed as-is in
// "Name: value" form; body, when non-empty, is piped through stdin.
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
