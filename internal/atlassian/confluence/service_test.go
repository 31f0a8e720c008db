package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/agent-skills/internal/atlassian"
)

func newTestService(t *testing.T, deployment atlassian.Deployment, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := atlassian.NewClient(server.URL, atlassian.BearerAuth{Token: "pat"}, atlassian.Options{})
	return NewService(client, atlassian.Info{
		Product:    "confluence",
		BaseURL:    server.URL,
		Deployment: deployment,
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestAPIPrefixPerDeployment(t *testing.T) {
	newSvc := func(baseURL string, d atlassian.Deployment) *Service {
		client := atlassian.NewClient(baseURL, nil, atlassian.Options{})
		return NewService(client, atlassian.Info{Deployment: d})
	}

	assert.Equal(t, "/rest/api",
		newSvc("https://wiki.company.com", atlassian.DeploymentServer).api())
	assert.Equal(t, "/wiki/rest/api",
		newSvc("https://company.atlassian.net", atlassian.DeploymentCloud).api())
	assert.Equal(t, "/rest/api",
		newSvc("https://company.atlassian.net/wiki", atlassian.DeploymentCloud).api())
}

func TestSearchCQL(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/content/search", r.URL.Path)
		assert.Equal(t, `space = DOCS and type = page`, r.URL.Query().Get("cql"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "space,version", r.URL.Query().Get("expand"))
		_, _ = w.Write([]byte(`{
			"results": [{"id": "123", "type": "page", "title": "Runbook"}],
			"start": 0, "limit": 10, "size": 1
		}`))
	}))

	result, err := svc.Search(context.Background(), SearchOptions{
		CQL:   "space = DOCS and type = page",
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Runbook", result.Results[0].Title)
}

func TestSearchFreeTextOnCloudUsesWikiPrefix(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentCloud, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/search", r.URL.Path)
		assert.Equal(t, `text ~ "deploy \"prod\""`, r.URL.Query().Get("cql"))
		_, _ = w.Write([]byte(`{"results": []}`))
	}))

	_, err := svc.Search(context.Background(), SearchOptions{Text: `deploy "prod"`})
	require.NoError(t, err)
}

func TestSearchScopedToSpace(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `(text ~ "runbook") AND space = "OPS"`, r.URL.Query().Get("cql"))
		_, _ = w.Write([]byte(`{"results": []}`))
	}))

	_, err := svc.Search(context.Background(), SearchOptions{Text: "runbook", Space: "OPS"})
	require.NoError(t, err)
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := svc.Search(context.Background(), SearchOptions{})
	assert.Error(t, err)
}

func TestGetExpandsBodies(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/content/123", r.URL.Path)
		assert.Equal(t, "body.storage,body.view,version,space", r.URL.Query().Get("expand"))
		_, _ = w.Write([]byte(`{
			"id": "123", "type": "page", "title": "Runbook",
			"version": {"number": 4},
			"body": {"view": {"value": "<p>Step one</p>", "representation": "view"}},
			"_links": {"webui": "/display/DOCS/Runbook"}
		}`))
	}))

	page, err := svc.Get(context.Background(), "123", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Runbook", page.Title)
	assert.Equal(t, 4, page.Version.Number)
	assert.Equal(t, "Step one", page.BodyText())
	assert.Equal(t, "/display/DOCS/Runbook", page.WebLink())
}

func TestGetWithComments(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("expand"), "children.comment.body.view")
		_, _ = w.Write([]byte(`{
			"id": "123", "title": "Runbook",
			"children": {"comment": {"results": [
				{"id": "900", "type": "comment", "title": "Re: Runbook",
				 "body": {"view": {"value": "<p>outdated</p>"}}}
			], "size": 1}}
		}`))
	}))

	page, err := svc.Get(context.Background(), "123", GetOptions{Comments: true})
	require.NoError(t, err)
	require.NotNil(t, page.Children)
	require.NotNil(t, page.Children.Comment)
	require.Len(t, page.Children.Comment.Results, 1)
	assert.Equal(t, "outdated", page.Children.Comment.Results[0].BodyText())
}

func TestCreateSendsStorageBody(t *testing.T) {
	var gotBody map[string]any
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/content", r.URL.Path)
		gotBody = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"id": "456", "type": "page", "title": "New Page"}`))
	}))

	page, err := svc.Create(context.Background(), CreateInput{
		Space:    "DOCS",
		Title:    "New Page",
		Body:     "first paragraph\n\nsecond",
		ParentID: "123",
	})
	require.NoError(t, err)
	assert.Equal(t, "456", page.ID)

	assert.Equal(t, "page", gotBody["type"])
	assert.Equal(t, map[string]any{"key": "DOCS"}, gotBody["space"])
	assert.Equal(t, []any{map[string]any{"id": "123"}}, gotBody["ancestors"])

	storage := gotBody["body"].(map[string]any)["storage"].(map[string]any)
	assert.Equal(t, "<p>first paragraph</p><p>second</p>", storage["value"])
	assert.Equal(t, "storage", storage["representation"])
}

func TestUpdateIncrementsVersion(t *testing.T) {
	var putBody map[string]any
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"id": "123", "title": "Runbook", "version": {"number": 4}}`))
		case http.MethodPut:
			putBody = decodeBody(t, r)
			_, _ = w.Write([]byte(`{"id": "123", "title": "Runbook", "version": {"number": 5}}`))
		}
	}))

	page, err := svc.Update(context.Background(), "123", UpdateInput{Body: "new body"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Version.Number)

	assert.Equal(t, map[string]any{"number": float64(5)}, putBody["version"])
	// The title is preserved when not overridden.
	assert.Equal(t, "Runbook", putBody["title"])
}

func TestUpdateVersionConflict(t *testing.T) {
	version := 4
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"id": "123", "title": "Runbook", "version": {"number": ` + strconv.Itoa(version) + `}}`))
			version = 6 // concurrent edit lands between read and write
		case http.MethodPut:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message": "Version must be incremented on update"}`))
		}
	}))

	_, err := svc.Update(context.Background(), "123", UpdateInput{Body: "new body"})
	require.Error(t, err)

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "123", conflict.PageID)
	assert.Equal(t, 6, conflict.CurrentVersion)
}

func TestCommentPostsContainer(t *testing.T) {
	var gotBody map[string]any
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"id": "901", "type": "comment"}`))
	}))

	comment, err := svc.Comment(context.Background(), "123", "needs review")
	require.NoError(t, err)
	assert.Equal(t, "901", comment.ID)

	assert.Equal(t, "comment", gotBody["type"])
	assert.Equal(t, map[string]any{"id": "123", "type": "page"}, gotBody["container"])
}

func TestSpaces(t *testing.T) {
	svc := newTestService(t, atlassian.DeploymentServer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/space", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"results": [
			{"key": "DOCS", "name": "Documentation", "type": "global"},
			{"key": "~alice", "name": "Alice", "type": "personal"}
		], "size": 2}`))
	}))

	spaces, err := svc.Spaces(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, spaces.Results, 2)
	assert.Equal(t, "DOCS", spaces.Results[0].Key)
}

func TestBodyTextPrefersView(t *testing.T) {
	page := &Page{Body: &Body{
		Storage: &BodyContent{Value: "<p>storage</p>"},
		View:    &BodyContent{Value: "<p>rendered</p>"},
	}}
	assert.Equal(t, "rendered", page.BodyText())

	page.Body.View = nil
	assert.Equal(t, "storage", page.BodyText())

	assert.Equal(t, "", (&Page{}).BodyText())
}
