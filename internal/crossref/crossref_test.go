package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJiraKeys(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single key",
			text: "Fixes PROJ-123 in the login flow",
			want: []string{"PROJ-123"},
		},
		{
			name: "deduplicates preserving first occurrence",
			text: "PROJ-2 depends on PROJ-1, see PROJ-2 again",
			want: []string{"PROJ-2", "PROJ-1"},
		},
		{
			name: "key with digits in project",
			text: "see B2B-77",
			want: []string{"B2B-77"},
		},
		{
			name: "lowercase is not a key",
			text: "branch proj-123 has no reference",
			want: nil,
		},
		{
			name: "no matches",
			text: "nothing to see here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJiraKeys(tt.text))
		})
	}
}

func TestFromReview(t *testing.T) {
	got := FromReview("feature/PROJ-9-login", "PROJ-10: retry auth", "Also touches PROJ-9.")
	assert.Equal(t, []string{"PROJ-9", "PROJ-10"}, got)

	assert.Nil(t, FromReview("main", "tidy up", ""))
}
