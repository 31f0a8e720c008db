// Package jira implements the Jira skill operations on top of the
// shared Atlassian client, handling the Cloud/Server API differences:
// REST version, search endpoint, user identification, and body format.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dverbeek/agent-skills/internal/atlassian"
	"github.com/dverbeek/agent-skills/internal/atlassian/document"
)

const defaultMaxResults = 50

// Service executes Jira operations against one site.
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

// api returns the REST prefix: v3 on Cloud, v2 on Server/DC.
func (s *Service) api() string {
	if s.info.IsCloud() {
		return "/rest/api/3"
	}
	return "/rest/api/2"
}

// APIPath resolves a path relative to the versioned REST root, so
// passthrough callers work unchanged on Cloud and Server.
func (s *Service) APIPath(path string) string {
	return s.api() + path
}

// SearchOptions controls a search operation. Exactly one of JQL or
// Text must be set. StartAt paginates Server results; PageToken
// paginates Cloud results.
type SearchOptions struct {
	JQL        string
	Text       string
	Fields     []string
	MaxResults int
	StartAt    int
	PageToken  string
}

// Search runs a JQL or free-text search. Cloud sites use
// POST /rest/api/3/search/jql because the older search endpoints
// return HTTP 410 there; Server sites use POST /rest/api/2/search.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	jql := strings.TrimSpace(opts.JQL)
	if jql == "" {
		if strings.TrimSpace(opts.Text) == "" {
			return nil, fmt.Errorf("search requires a JQL query or search text")
		}
		jql = fmt.Sprintf(`text ~ "%s" ORDER BY updated DESC`, escapeJQL(opts.Text))
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{"summary", "status", "priority", "issuetype", "assignee", "updated"}
	}

	if s.info.IsCloud() {
		body := map[string]any{
			"jql":        jql,
			"maxResults": maxResults,
			"fields":     fields,
		}
		if opts.PageToken != "" {
			body["nextPageToken"] = opts.PageToken
		}

		var resp cloudSearchResponse
		if err := s.client.Post(ctx, "/rest/api/3/search/jql", body, &resp); err != nil {
			return nil, err
		}
		result := &SearchResult{
			MaxResults: maxResults,
			Total:      -1,
			Issues:     resp.Issues,
		}
		if !resp.IsLast {
			result.NextPageToken = resp.NextPageToken
		}
		return result, nil
	}

	body := map[string]any{
		"jql":        jql,
		"startAt":    opts.StartAt,
		"maxResults": maxResults,
		"fields":     fields,
	}

	var resp serverSearchResponse
	if err := s.client.Post(ctx, "/rest/api/2/search", body, &resp); err != nil {
		return nil, err
	}
	return &SearchResult{
		StartAt:    resp.StartAt,
		MaxResults: resp.MaxResults,
		Total:      resp.Total,
		Issues:     resp.Issues,
	}, nil
}

// Get retrieves a single issue with rendered fields, transitions, and
// comments.
func (s *Service) Get(ctx context.Context, key string) (*Issue, error) {
	path := fmt.Sprintf("%s/issue/%s?expand=renderedFields,transitions", s.api(), url.PathEscape(key))

	var issue Issue
	if err := s.client.Get(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", key, err)
	}
	return &issue, nil
}

// CreateInput holds the fields for a new issue.
type CreateInput struct {
	Project     string
	Type        string
	Summary     string
	Description string
	Priority    string
	Assignee    string
	Labels      []string
}

// Create files a new issue. The description is formatted for the
// deployment: ADF on Cloud, plain text on Server.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Issue, error) {
	fields := map[string]any{
		"project":   map[string]string{"key": input.Project},
		"issuetype": map[string]string{"name": input.Type},
		"summary":   input.Summary,
	}
	if input.Description != "" {
		fields["description"] = document.Format(input.Description, s.info.Deployment)
	}
	if input.Priority != "" {
		fields["priority"] = map[string]string{"name": input.Priority}
	}
	if len(input.Labels) > 0 {
		fields["labels"] = input.Labels
	}
	if input.Assignee != "" {
		assignee, err := s.assigneeField(ctx, input.Assignee)
		if err != nil {
			return nil, err
		}
		fields["assignee"] = assignee
	}

	var resp createResponse
	if err := s.client.Post(ctx, s.api()+"/issue", map[string]any{"fields": fields}, &resp); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	return &Issue{ID: resp.ID, Key: resp.Key, Self: resp.Self}, nil
}

// UpdateInput holds issue edits. Nil fields are left unchanged; a
// non-nil Labels slice replaces the labels outright.
type UpdateInput struct {
	Summary     *string
	Description *string
	Labels      []string
}

// Update edits an existing issue.
func (s *Service) Update(ctx context.Context, key string, input UpdateInput) error {
	fields := map[string]any{}
	if input.Summary != nil {
		fields["summary"] = *input.Summary
	}
	if input.Description != nil {
		fields["description"] = document.Format(*input.Description, s.info.Deployment)
	}
	if input.Labels != nil {
		fields["labels"] = input.Labels
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update for %s", key)
	}

	path := s.api() + "/issue/" + url.PathEscape(key)
	if err := s.client.Put(ctx, path, map[string]any{"fields": fields}, nil); err != nil {
		return fmt.Errorf("updating issue %s: %w", key, err)
	}
	return nil
}

// Comment adds a comment to an issue, formatted per deployment.
func (s *Service) Comment(ctx context.Context, key, body string) (*Comment, error) {
	path := fmt.Sprintf("%s/issue/%s/comment", s.api(), url.PathEscape(key))
	payload := map[string]any{"body": document.Format(body, s.info.Deployment)}

	var comment Comment
	if err := s.client.Post(ctx, path, payload, &comment); err != nil {
		return nil, fmt.Errorf("commenting on %s: %w", key, err)
	}
	return &comment, nil
}

// Transitions lists the transitions currently available on an issue.
func (s *Service) Transitions(ctx context.Context, key string) ([]Transition, error) {
	path := fmt.Sprintf("%s/issue/%s/transitions", s.api(), url.PathEscape(key))

	var resp transitionsResponse
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing transitions for %s: %w", key, err)
	}
	return resp.Transitions, nil
}

// Transition moves an issue to the named state. The name matches
// case-insensitively against both the transition and its target
// status; on no match the error lists the valid names.
func (s *Service) Transition(ctx context.Context, key, to string) (*Transition, error) {
	transitions, err := s.Transitions(ctx, key)
	if err != nil {
		return nil, err
	}

	var match *Transition
	for i := range transitions {
		t := &transitions[i]
		if strings.EqualFold(t.Name, to) || strings.EqualFold(t.To.Name, to) {
			match = t
			break
		}
	}
	if match == nil {
		names := make([]string, 0, len(transitions))
		for _, t := range transitions {
			names = append(names, t.Name)
		}
		return nil, fmt.Errorf(
			"no transition %q for %s; available: %s",
			to, key, strings.Join(names, ", "),
		)
	}

	path := fmt.Sprintf("%s/issue/%s/transitions", s.api(), url.PathEscape(key))
	payload := map[string]any{"transition": map[string]string{"id": match.ID}}
	if err := s.client.Post(ctx, path, payload, nil); err != nil {
		return nil, fmt.Errorf("transitioning %s to %q: %w", key, match.Name, err)
	}
	return match, nil
}

// Assign sets the issue assignee. Cloud identifies users by accountId,
// resolved through user search; Server assigns by username.
func (s *Service) Assign(ctx context.Context, key, user string) error {
	assignee, err := s.assigneeField(ctx, user)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/issue/%s/assignee", s.api(), url.PathEscape(key))
	if err := s.client.Put(ctx, path, assignee, nil); err != nil {
		return fmt.Errorf("assigning %s to %q: %w", key, user, err)
	}
	return nil
}

// assigneeField builds the assignee payload for the deployment.
func (s *Service) assigneeField(ctx context.Context, user string) (map[string]string, error) {
	if !s.info.IsCloud() {
		return map[string]string{"name": user}, nil
	}

	accountID, err := s.resolveAccountID(ctx, user)
	if err != nil {
		return nil, err
	}
	return map[string]string{"accountId": accountID}, nil
}

// resolveAccountID looks up a Cloud accountId by email or display
// name.
func (s *Service) resolveAccountID(ctx context.Context, user string) (string, error) {
	path := "/rest/api/3/user/search?query=" + url.QueryEscape(user)

	var users []User
	if err := s.client.Get(ctx, path, &users); err != nil {
		return "", fmt.Errorf("searching user %q: %w", user, err)
	}

	switch {
	case len(users) == 0:
		return "", fmt.Errorf("no user found matching %q", user)
	case len(users) == 1:
		return users[0].AccountID, nil
	}

	for _, u := range users {
		if strings.EqualFold(u.EmailAddress, user) || strings.EqualFold(u.DisplayName, user) {
			return u.AccountID, nil
		}
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName)
	}
	return "", fmt.Errorf("ambiguous user %q: matches %s", user, strings.Join(names, ", "))
}

// Myself returns the authenticated user; it doubles as a connection
// check.
func (s *Service) Myself(ctx context.Context) (*Myself, error) {
	var me Myself
	if err := s.client.Get(ctx, s.api()+"/myself", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Raw forwards an arbitrary request to the site and returns the
// response verbatim.
func (s *Service) Raw(ctx context.Context, method, path string, header http.Header, body []byte) (*atlassian.Response, error) {
	return s.client.Do(ctx, method, path, header, body)
}

// escapeJQL escapes special characters in a JQL text search value.
func escapeJQL(s string) string {
	// Escape backslashes first, then double-quotes.
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.TrimSpace(s)
}

// DescriptionText returns the issue description as plain text,
// flattening ADF bodies from Cloud sites.
func (f IssueFields) DescriptionText() string {
	return document.ADFToText(f.Description)
}

// BodyText returns the comment body as plain text, flattening ADF
// bodies from Cloud sites.
func (c Comment) BodyText() string {
	return document.ADFToText(c.Body)
}
