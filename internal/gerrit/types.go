package gerrit

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is the Gerrit REST timestamp format, UTC with
// nanoseconds and no timezone designator.
const timeLayout = "2006-01-02 15:04:05.000000000"

// Timestamp decodes Gerrit's non-RFC3339 timestamps.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse gerrit timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// AccountInfo identifies a Gerrit account.
type AccountInfo struct {
	AccountID int    `json:"_account_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
}

// LabelInfo summarizes one vote label on a change.
type LabelInfo struct {
	Approved *AccountInfo `json:"approved,omitempty"`
	Rejected *AccountInfo `json:"rejected,omitempty"`
	Value    int          `json:"value,omitempty"`
}

// ChangeMessage is one entry in a change's message log.
type ChangeMessage struct {
	Author         AccountInfo `json:"author,omitempty"`
	Date           Timestamp   `json:"date"`
	Message        string      `json:"message"`
	RevisionNumber int         `json:"_revision_number,omitempty"`
}

// ChangeInfo is the REST representation of a change.
type ChangeInfo struct {
	ID              string               `json:"id"`
	Project         string               `json:"project"`
	Branch          string               `json:"branch"`
	ChangeID        string               `json:"change_id"`
	Subject         string               `json:"subject"`
	Status          string               `json:"status"`
	Number          int                  `json:"_number"`
	Owner           AccountInfo          `json:"owner"`
	Created         Timestamp            `json:"created"`
	Updated         Timestamp            `json:"updated"`
	CurrentRevision string               `json:"current_revision,omitempty"`
	Labels          map[string]LabelInfo `json:"labels,omitempty"`
	Messages        []ChangeMessage      `json:"messages,omitempty"`
}

// ReviewInput is the body posted to the review endpoint. Label values
// are votes like {"Code-Review": -1}.
type ReviewInput struct {
	Message string         `json:"message,omitempty"`
	Labels  map[string]int `json:"labels,omitempty"`
}

// ReviewResult reports the votes the review applied.
type ReviewResult struct {
	Labels map[string]int `json:"labels,omitempty"`
}
