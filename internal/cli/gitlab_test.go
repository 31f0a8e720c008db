package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/agent-skills/internal/gitlab"
	"github.com/dverbeek/agent-skills/internal/output"
)

func TestRenderMRList(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	mrs := []gitlab.MergeRequest{
		{IID: 41, Title: "Speed up CI cache", State: "opened", Author: gitlab.User{Username: "sam"}, SourceBranch: "ci-cache"},
		{IID: 40, Title: "New settings page", State: "opened", Author: gitlab.User{Username: "kai"}, SourceBranch: "settings", Draft: true},
	}
	require.NoError(t, renderMRList(p, mrs))

	out := buf.String()
	assert.Contains(t, out, "!41")
	assert.Contains(t, out, "Speed up CI cache")
	assert.Contains(t, out, "[draft] New settings page")
	assert.Contains(t, out, "sam")
}

func TestRenderMRListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	require.NoError(t, renderMRList(p, nil))
	assert.Equal(t, "No merge requests found.\n", buf.String())
}

func TestRenderMR(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	mr := &gitlab.MergeRequest{
		IID:          41,
		Title:        "Speed up CI cache",
		State:        "opened",
		Author:       gitlab.User{Username: "sam"},
		SourceBranch: "OPS-12-ci-cache",
		TargetBranch: "main",
		WebURL:       "https://gitlab.com/acme/web/-/merge_requests/41",
		Description:  "Keys the cache on the lockfile hash.",
	}
	require.NoError(t, renderMR(p, mr))

	out := buf.String()
	assert.Contains(t, out, "!41: Speed up CI cache")
	assert.Contains(t, out, "OPS-12-ci-cache -> main")
	assert.Contains(t, out, "OPS-12")
	assert.Contains(t, out, "Keys the cache on the lockfile hash.")
}

func TestRenderGitLabIssue(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	issue := &gitlab.Issue{
		IID:         7,
		Title:       "Export fails for large projects",
		State:       "opened",
		Author:      gitlab.User{Username: "sam"},
		Labels:      []string{"bug", "export"},
		WebURL:      "https://gitlab.com/acme/web/-/issues/7",
		Description: "Export times out past 10k files.",
	}
	require.NoError(t, renderGitLabIssue(p, issue))

	out := buf.String()
	assert.Contains(t, out, "#7: Export fails for large projects")
	assert.Contains(t, out, "bug, export")
	assert.Contains(t, out, "Export times out past 10k files.")
}

func TestRenderPipelines(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	pipelines := []gitlab.Pipeline{
		{
			ID:        88123,
			Status:    "success",
			Ref:       "main",
			SHA:       "f00dcafe900ddeadbeef1234",
			UpdatedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
	}
	require.NoError(t, renderPipelines(p, pipelines))

	out := buf.String()
	assert.Contains(t, out, "88123")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "f00dcafe")
	assert.NotContains(t, out, "f00dcafe9")
	assert.Contains(t, out, "2025-06-01 10:30")
}

func TestRenderPipelinesEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	require.NoError(t, renderPipelines(p, nil))
	assert.Equal(t, "No pipelines found.\n", buf.String())
}
