package github

import "time"

// User is a GitHub account reference as gh emits it.
type User struct {
	Login string `json:"login"`
}

// Label is an issue or pull request label.
type Label struct {
	Name string `json:"name"`
}

// PullRequest mirrors the gh --json fields the pr commands ask for.
type PullRequest struct {
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	State          string    `json:"state"`
	Author         User      `json:"author"`
	HeadRefName    string    `json:"headRefName"`
	BaseRefName    string    `json:"baseRefName"`
	URL            string    `json:"url"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Body           string    `json:"body,omitempty"`
	Additions      int       `json:"additions,omitempty"`
	Deletions      int       `json:"deletions,omitempty"`
	ReviewDecision string    `json:"reviewDecision,omitempty"`
}

// IssueComment is a single comment on an issue.
type IssueComment struct {
	Author    User      `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Issue mirrors the gh --json fields the issue commands ask for.
type Issue struct {
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	State     string         `json:"state"`
	Author    User           `json:"author"`
	Labels    []Label        `json:"labels"`
	URL       string         `json:"url"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Body      string         `json:"body,omitempty"`
	Comments  []IssueComment `json:"comments,omitempty"`
}

// Repository describes the current or named repository.
type Repository struct {
	Name             string `json:"name"`
	Owner            User   `json:"owner"`
	Description      string `json:"description"`
	DefaultBranchRef struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
	IsPrivate      bool   `json:"isPrivate"`
	URL            string `json:"url"`
	StargazerCount int    `json:"stargazerCount"`
}

// Check is one CI check on a pull request, normalized across the two
// shapes gh reports (check runs and commit statuses).
type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url,omitempty"`
}

// checkNode holds the union of the statusCheckRollup entry fields.
type checkNode struct {
	Typename   string `json:"__typename"`
	Name       string `json:"name"`
	Context    string `json:"context"`
	Status     string `json:"status"`
	State      string `json:"state"`
	Conclusion string `json:"conclusion"`
	DetailsURL string `json:"detailsUrl"`
	TargetURL  string `json:"targetUrl"`
}

func (n checkNode) check() Check {
	c := Check{
		Name:       n.Name,
		Status:     n.Status,
		Conclusion: n.Conclusion,
		URL:        n.DetailsURL,
	}
	if c.Name == "" {
		c.Name = n.Context
	}
	if c.Status == "" {
		c.Status = n.State
	}
	if c.Conclusion == "" {
		c.Conclusion = n.State
	}
	if c.URL == "" {
		c.URL = n.TargetURL
	}
	return c
}
