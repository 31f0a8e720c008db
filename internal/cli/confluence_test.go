package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/agent-skills/internal/atlassian/confluence"
	"github.com/dverbeek/agent-skills/internal/output"
)

func samplePage() *confluence.Page {
	return &confluence.Page{
		ID:      "98310",
		Type:    "page",
		Title:   "Release checklist",
		Space:   &confluence.Space{Key: "ENG", Name: "Engineering"},
		Version: &confluence.Version{Number: 4},
		Body: &confluence.Body{
			Storage: &confluence.BodyContent{
				Value:          "<p>Tag the release and post in #releases.</p>",
				Representation: "storage",
			},
		},
		Links: map[string]string{"webui": "/spaces/ENG/pages/98310"},
	}
}

func TestRenderPageList(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	result := &confluence.SearchResult{Results: []confluence.Page{*samplePage()}}
	require.NoError(t, renderPageList(p, result))

	out := buf.String()
	assert.Contains(t, out, "98310")
	assert.Contains(t, out, "ENG")
	assert.Contains(t, out, "Release checklist")
}

func TestRenderPageListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	require.NoError(t, renderPageList(p, &confluence.SearchResult{}))
	assert.Equal(t, "No pages found.\n", buf.String())
}

func TestRenderPageListJSON(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatJSON)

	result := &confluence.SearchResult{Results: []confluence.Page{*samplePage()}}
	require.NoError(t, renderPageList(p, result))

	var decoded confluence.SearchResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "Release checklist", decoded.Results[0].Title)
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	page := samplePage()
	page.Children = &confluence.Children{
		Comment: &confluence.CommentList{
			Results: []confluence.Page{
				{
					Type: "comment",
					Body: &confluence.Body{
						Storage: &confluence.BodyContent{Value: "<p>Done for 2.3.0.</p>"},
					},
				},
			},
		},
	}
	require.NoError(t, renderPage(p, page))

	out := buf.String()
	assert.Contains(t, out, "Release checklist")
	assert.Contains(t, out, "ENG")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "/spaces/ENG/pages/98310")
	assert.Contains(t, out, "Tag the release and post in #releases.")
	assert.Contains(t, out, "- Done for 2.3.0.")
}

func TestRenderPageSkipsMissingParts(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	require.NoError(t, renderPage(p, &confluence.Page{ID: "1", Title: "Bare"}))

	out := buf.String()
	assert.Contains(t, out, "Bare")
	assert.NotContains(t, out, "Space")
	assert.NotContains(t, out, "Version")
	assert.NotContains(t, out, "Link")
}
