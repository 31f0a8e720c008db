package github

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRun records the gh invocation and plays back canned output.
type fakeRun struct {
	args   []string
	stdin  string
	output string
	err    error
}

func (f *fakeRun) run(_ context.Context, args []string, stdin string) (string, error) {
	f.args = args
	f.stdin = stdin
	return f.output, f.err
}

func newTestClient(repo string, fake *fakeRun) *Client {
	return &Client{repo: repo, run: fake.run}
}

func TestPRsDefaultsAndDecoding(t *testing.T) {
	fake := &fakeRun{output: `[
		{"number": 41, "title": "Add retries", "state": "OPEN",
		 "author": {"login": "octocat"}, "headRefName": "retries",
		 "baseRefName": "main", "url": "https://github.com/o/r/pull/41",
		 "updatedAt": "2025-06-01T10:00:00Z"}
	]`}
	c := newTestClient("", fake)

	prs, err := c.PRs(context.Background(), "", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"pr", "list", "--state", "open", "--limit", "30", "--json", prListFields}, fake.args)
	require.Len(t, prs, 1)
	assert.Equal(t, 41, prs[0].Number)
	assert.Equal(t, "octocat", prs[0].Author.Login)
	assert.Equal(t, "retries", prs[0].HeadRefName)
}

func TestPRsScopedToRepo(t *testing.T) {
	fake := &fakeRun{output: `[]`}
	c := newTestClient("octo/hello", fake)

	_, err := c.PRs(context.Background(), "merged", 5)
	require.NoError(t, err)

	joined := strings.Join(fake.args, " ")
	assert.Contains(t, joined, "--state merged")
	assert.Contains(t, joined, "--limit 5")
	assert.Contains(t, joined, "--repo octo/hello")
}

func TestPRView(t *testing.T) {
	fake := &fakeRun{output: `{
		"number": 7, "title": "Fix flaky test", "state": "MERGED",
		"author": {"login": "dev"}, "body": "Fixes PROJ-12.",
		"additions": 10, "deletions": 2, "reviewDecision": "APPROVED",
		"headRefName": "fix", "baseRefName": "main",
		"url": "https://github.com/o/r/pull/7",
		"updatedAt": "2025-06-02T08:30:00Z"}`}
	c := newTestClient("", fake)

	pr, err := c.PR(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"pr", "view", "7", "--json", prViewFields}, fake.args)
	assert.Equal(t, "Fixes PROJ-12.", pr.Body)
	assert.Equal(t, "APPROVED", pr.ReviewDecision)
	assert.Equal(t, 10, pr.Additions)
}

func TestPRDiffPassesRawOutput(t *testing.T) {
	fake := &fakeRun{output: "diff --git a/main.go b/main.go\n"}
	c := newTestClient("octo/hello", fake)

	diff, err := c.PRDiff(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, []string{"pr", "diff", "12", "--repo", "octo/hello"}, fake.args)
	assert.Equal(t, "diff --git a/main.go b/main.go\n", diff)
}

func TestPRChecksNormalizesBothShapes(t *testing.T) {
	fake := &fakeRun{output: `{"statusCheckRollup": [
		{"__typename": "CheckRun", "name": "build", "status": "COMPLETED",
		 "conclusion": "SUCCESS", "detailsUrl": "https://ci.example.com/1"},
		{"__typename": "StatusContext", "context": "lint", "state": "FAILURE",
		 "targetUrl": "https://ci.example.com/2"}
	]}`}
	c := newTestClient("", fake)

	checks, err := c.PRChecks(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, Check{Name: "build", Status: "COMPLETED", Conclusion: "SUCCESS", URL: "https://ci.example.com/1"}, checks[0])
	assert.Equal(t, Check{Name: "lint", Status: "FAILURE", Conclusion: "FAILURE", URL: "https://ci.example.com/2"}, checks[1])
}

func TestIssuesDecodesLabels(t *testing.T) {
	fake := &fakeRun{output: `[
		{"number": 9, "title": "Crash on empty config", "state": "OPEN",
		 "author": {"login": "reporter"},
		 "labels": [{"name": "bug"}, {"name": "p1"}],
		 "url": "https://github.com/o/r/issues/9",
		 "updatedAt": "2025-05-30T12:00:00Z"}
	]`}
	c := newTestClient("", fake)

	issues, err := c.Issues(context.Background(), "open", 10)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, []Label{{Name: "bug"}, {Name: "p1"}}, issues[0].Labels)
}

func TestIssueViewIncludesComments(t *testing.T) {
	fake := &fakeRun{output: `{
		"number": 9, "title": "Crash on empty config", "state": "OPEN",
		"author": {"login": "reporter"}, "body": "It fails on boot.",
		"labels": [], "url": "https://github.com/o/r/issues/9",
		"updatedAt": "2025-05-30T12:00:00Z",
		"comments": [{"author": {"login": "dev"}, "body": "Repro confirmed.",
		              "createdAt": "2025-05-31T09:00:00Z"}]}`}
	c := newTestClient("", fake)

	issue, err := c.Issue(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, []string{"issue", "view", "9", "--json", issueViewFields}, fake.args)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, "dev", issue.Comments[0].Author.Login)
}

func TestRepoView(t *testing.T) {
	fake := &fakeRun{output: `{
		"name": "hello", "owner": {"login": "octo"},
		"description": "Example service",
		"defaultBranchRef": {"name": "main"},
		"isPrivate": true, "url": "https://github.com/octo/hello",
		"stargazerCount": 12}`}
	c := newTestClient("octo/hello", fake)

	repo, err := c.Repo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "octo", repo.Owner.Login)
	assert.Equal(t, "main", repo.DefaultBranchRef.Name)
	assert.True(t, repo.IsPrivate)
}

func TestAPIPassthrough(t *testing.T) {
	fake := &fakeRun{output: `{"ok": true}`}
	c := newTestClient("", fake)

	out, err := c.API(context.Background(), "POST", "repos/octo/hello/labels",
		[]string{"Accept: application/vnd.github+json"}, `{"name":"infra"}`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"api", "repos/octo/hello/labels",
		"-X", "POST",
		"-H", "Accept: application/vnd.github+json",
		"--input", "-",
	}, fake.args)
	assert.Equal(t, `{"name":"infra"}`, fake.stdin)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestAPIGetOmitsMethodFlag(t *testing.T) {
	fake := &fakeRun{output: `[]`}
	c := newTestClient("", fake)

	_, err := c.API(context.Background(), "GET", "user/repos", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "user/repos"}, fake.args)
}

func TestRunErrorPropagates(t *testing.T) {
	fake := &fakeRun{err: errors.New("gh: no pull requests found")}
	c := newTestClient("", fake)

	_, err := c.PRs(context.Background(), "open", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pull requests found")
}

func TestBadJSONSurfacesParseError(t *testing.T) {
	fake := &fakeRun{output: "not json"}
	c := newTestClient("", fake)

	_, err := c.Repo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse gh output")
}
