package confluence

// SearchResult is a page of content results from a CQL search.
type SearchResult struct {
	Results []Page `json:"results"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
}

// Page is a Confluence content object: a page, blog post, or comment.
type Page struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Status   string            `json:"status,omitempty"`
	Title    string            `json:"title"`
	Space    *Space            `json:"space,omitempty"`
	Version  *Version          `json:"version,omitempty"`
	Body     *Body             `json:"body,omitempty"`
	Children *Children         `json:"children,omitempty"`
	Links    map[string]string `json:"_links,omitempty"`
}

// Body holds the content representations requested via expand.
type Body struct {
	Storage *BodyContent `json:"storage,omitempty"`
	View    *BodyContent `json:"view,omitempty"`
}

// BodyContent is one representation of a page body.
type BodyContent struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

// Version tracks the page edit counter used for optimistic locking.
type Version struct {
	Number int    `json:"number"`
	When   string `json:"when,omitempty"`
}

// Space is a Confluence space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SpaceList is the response from GET /space.
type SpaceList struct {
	Results []Space `json:"results"`
	Start   int     `json:"start"`
	Limit   int     `json:"limit"`
	Size    int     `json:"size"`
}

// Children carries expanded child content, such as comments.
type Children struct {
	Comment *CommentList `json:"comment,omitempty"`
}

// CommentList holds the comments attached to a page.
type CommentList struct {
	Results []Page `json:"results"`
	Size    int    `json:"size"`
}
