// Package crossref extracts issue tracker references from code review
// metadata so review commands can link changes back to Jira issues.
package crossref

import "regexp"

// jiraKeyPattern matches Jira issue keys (e.g., PROJ-123, ABC-1).
var jiraKeyPattern = regexp.MustCompile(`([A-Z][A-Z0-9]+-\d+)`)

// ExtractJiraKeys extracts all Jira issue key matches from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractJiraKeys(text string) []string {
	matches := jiraKeyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// FromReview extracts issue keys from a review item's branch name,
// title, and description, in that order of appearance.
func FromReview(branch, title, description string) []string {
	return ExtractJiraKeys(branch + " " + title + " " + description)
}
