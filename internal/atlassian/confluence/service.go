// Package confluence implements the Confluence skill operations on top
// of the shared Atlassian client. Cloud sites serve the REST API under
// /wiki; Server and Data Center serve it at the site root.
package confluence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dverbeek/agent-skills/internal/atlassian"
	"github.com/dverbeek/agent-skills/internal/atlassian/document"
)

const defaultLimit = 25

// VersionConflictError is returned when a concurrent edit bumped the
// page version between read and write.
type VersionConflictError struct {
	PageID         string
	CurrentVersion int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf(
		"version conflict on page %s: page is now at version %d, re-run to retry against it",
		e.PageID, e.CurrentVersion,
	)
}

// Service executes Confluence operations against one site.
type Service struct {
	client *atlassian.Client
	info   atlassian.Info
}

// NewService wraps an authenticated client with the detected
// deployment info.
func NewService(client *atlassian.Client, info atlassian.Info) *Service {
	return &Service{client: client, info: info}
}

// Deployment returns the detected deployment for this service.
func (s *Service) Deployment() atlassian.Deployment {
	return s.info.Deployment
}

// api returns the REST prefix. Cloud sites gain /wiki unless the
// configured base URL already carries it.
func (s *Service) api() string {
	if s.info.IsCloud() && !strings.HasSuffix(s.client.BaseURL(), "/wiki") {
		return "/wiki/rest/api"
	}
	return "/rest/api"
}

// APIPath resolves a path relative to the detected REST root, so
// passthrough callers work unchanged on Cloud and Server.
func (s *Service) APIPath(path string) string {
	return s.api() + path
}

// SearchOptions controls a content search. Exactly one of CQL or Text
// must be set; Space narrows either to one space key.
type SearchOptions struct {
	CQL   string
	Text  string
	Space string
	Limit int
	Start int
}

// Search runs a CQL or free-text content search.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	cql := strings.TrimSpace(opts.CQL)
	if cql == "" {
		if strings.TrimSpace(opts.Text) == "" {
			return nil, fmt.Errorf("search requires a CQL query or search text")
		}
		cql = fmt.Sprintf(`text ~ "%s"`, escapeCQL(opts.Text))
	}
	if opts.Space != "" {
		cql = fmt.Sprintf(`(%s) AND space = "%s"`, cql, escapeCQL(opts.Space))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := url.Values{}
	query.Set("cql", cql)
	query.Set("limit", fmt.Sprint(limit))
	if opts.Start > 0 {
		query.Set("start", fmt.Sprint(opts.Start))
	}
	query.Set("expand", "space,version")

	var result SearchResult
	if err := s.client.Get(ctx, s.api()+"/content/search?"+query.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOptions controls which parts of a page are fetched.
type GetOptions struct {
	Comments bool
}

// Get retrieves a page with its storage and rendered bodies.
func (s *Service) Get(ctx context.Context, id string, opts GetOptions) (*Page, error) {
	expand := "body.storage,body.view,version,space"
	if opts.Comments {
		expand += ",children.comment.body.view"
	}

	path := fmt.Sprintf("%s/content/%s?expand=%s", s.api(), url.PathEscape(id), url.QueryEscape(expand))

	var page Page
	if err := s.client.Get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("getting page %s: %w", id, err)
	}
	return &page, nil
}

// CreateInput holds the fields for a new page.
type CreateInput struct {
	Space    string
	Title    string
	Body     string
	ParentID string
}

// Create makes a new page. The body text is converted to storage
// XHTML.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Page, error) {
	payload := map[string]any{
		"type":  "page",
		"title": input.Title,
		"space": map[string]string{"key": input.Space},
		"body":  storageBody(input.Body),
	}
	if input.ParentID != "" {
		payload["ancestors"] = []map[string]string{{"id": input.ParentID}}
	}

	var page Page
	if err := s.client.Post(ctx, s.api()+"/content", payload, &page); err != nil {
		return nil, fmt.Errorf("creating page %q: %w", input.Title, err)
	}
	return &page, nil
}

// UpdateInput holds page edits. An empty Title keeps the current one.
type UpdateInput struct {
	Title string
	Body  string
}

// Update replaces a page body using read-modify-write on the version
// counter. A concurrent edit surfaces as a VersionConflictError
// carrying the now-current version.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*Page, error) {
	current, err := s.Get(ctx, id, GetOptions{})
	if err != nil {
		return nil, err
	}
	if current.Version == nil {
		return nil, fmt.Errorf("page %s has no version information", id)
	}

	title := input.Title
	if title == "" {
		title = current.Title
	}

	payload := map[string]any{
		"type":    "page",
		"title":   title,
		"version": map[string]int{"number": current.Version.Number + 1},
		"body":    storageBody(input.Body),
	}

	var page Page
	putErr := s.client.Put(ctx, s.api()+"/content/"+url.PathEscape(id), payload, &page)
	if putErr == nil {
		return &page, nil
	}

	var apiErr *atlassian.APIError
	if errors.As(putErr, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		if latest, err := s.Get(ctx, id, GetOptions{}); err == nil && latest.Version != nil {
			return nil, &VersionConflictError{PageID: id, CurrentVersion: latest.Version.Number}
		}
		return nil, &VersionConflictError{PageID: id, CurrentVersion: current.Version.Number}
	}
	return nil, fmt.Errorf("updating page %s: %w", id, putErr)
}

// Comment adds a footer comment to a page.
func (s *Service) Comment(ctx context.Context, pageID, body string) (*Page, error) {
	payload := map[string]any{
		"type": "comment",
		"container": map[string]string{
			"id":   pageID,
			"type": "page",
		},
		"body": storageBody(body),
	}

	var comment Page
	if err := s.client.Post(ctx, s.api()+"/content", payload, &comment); err != nil {
		return nil, fmt.Errorf("commenting on page %s: %w", pageID, err)
	}
	return &comment, nil
}

// Spaces lists spaces visible to the authenticated user.
func (s *Service) Spaces(ctx context.Context, limit, start int) (*SpaceList, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))
	if start > 0 {
		query.Set("start", fmt.Sprint(start))
	}

	var spaces SpaceList
	if err := s.client.Get(ctx, s.api()+"/space?"+query.Encode(), &spaces); err != nil {
		return nil, err
	}
	return &spaces, nil
}

// Raw forwards an arbitrary request to the site and returns the
// response verbatim.
func (s *Service) Raw(ctx context.Context, method, path string, header http.Header, body []byte) (*atlassian.Response, error) {
	return s.client.Do(ctx, method, path, header, body)
}

func storageBody(text string) map[string]any {
	return map[string]any{
		"storage": map[string]string{
			"value":          document.StorageHTML(text),
			"representation": "storage",
		},
	}
}

// escapeCQL escapes special characters in a CQL text search value.
func escapeCQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.TrimSpace(s)
}

// BodyText returns the page body as plain text, preferring the
// rendered view over raw storage XHTML.
func (p *Page) BodyText() string {
	if p.Body == nil {
		return ""
	}
	if p.Body.View != nil && p.Body.View.Value != "" {
		return document.StripHTML(p.Body.View.Value)
	}
	if p.Body.Storage != nil {
		return document.StripHTML(p.Body.Storage.Value)
	}
	return ""
}

// WebLink returns the site-relative URL of the page when the API
// provided one.
func (p *Page) WebLink() string {
	if p.Links == nil {
		return ""
	}
	return p.Links["webui"]
}
