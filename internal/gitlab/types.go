package gitlab

import "time"

// User is a GitLab account reference.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// MergeRequest mirrors the REST shape glab emits with --output json.
type MergeRequest struct {
	IID          int       `json:"iid"`
	Title        string    `json:"title"`
	State        string    `json:"state"`
	Author       User      `json:"author"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	Draft        bool      `json:"draft,omitempty"`
	WebURL       string    `json:"web_url"`
	UpdatedAt    time.Time `json:"updated_at"`
	Description  string    `json:"description,omitempty"`
}

// Issue mirrors the REST issue shape. GitLab labels are plain strings.
type Issue struct {
	IID         int       `json:"iid"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	Author      User      `json:"author"`
	Labels      []string  `json:"labels"`
	WebURL      string    `json:"web_url"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description string    `json:"description,omitempty"`
}

// Pipeline is one CI pipeline run.
type Pipeline struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Ref       string    `json:"ref"`
	SHA       string    `json:"sha"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
