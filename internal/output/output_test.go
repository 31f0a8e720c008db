package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "text", input: "text", want: FormatText},
		{name: "json", input: "json", want: FormatJSON},
		{name: "empty defaults to text", input: "", want: FormatText},
		{name: "unknown", input: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONPrettyPrints(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	require.NoError(t, p.JSON(map[string]any{"key": "PROJ-1"}))

	assert.Equal(t, "{\n  \"key\": \"PROJ-1\"\n}\n", buf.String())
	assert.True(t, p.IsJSON())
}

func TestRawJSONReindents(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	require.NoError(t, p.RawJSON([]byte(`{"a":1}`)))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestRawJSONPassesThroughInvalid(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	require.NoError(t, p.RawJSON([]byte("204 No Content")))
	assert.Equal(t, "204 No Content\n", buf.String())
}

func TestLineAndField(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	p.Line("found %d changes", 3)
	p.Field("Status", "Open")
	p.Blank()

	out := buf.String()
	assert.Contains(t, out, "found 3 changes\n")
	assert.Contains(t, out, "Status:")
	assert.Contains(t, out, "Open")
	assert.False(t, p.IsJSON())
}

func TestTitleAndHint(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	p.Title("PROJ-42: Fix login")
	p.Hint("run `skills jira view PROJ-42` for details")

	out := buf.String()
	assert.Contains(t, out, "PROJ-42: Fix login")
	assert.Contains(t, out, "skills jira view PROJ-42")
}

func TestTableRendersHeadersAndRows(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	p.Table(
		[]string{"KEY", "STATUS", "SUMMARY"},
		[][]string{
			{"PROJ-1", "Open", "First issue"},
			{"PROJ-2", "Done", "Second issue"},
		},
	)

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "PROJ-1")
	assert.Contains(t, out, "Second issue")
	assert.Less(t, bytes.Index([]byte(out), []byte("PROJ-1")), bytes.Index([]byte(out), []byte("PROJ-2")))
}

func TestStatusKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatText)

	assert.Contains(t, p.Status("In Progress"), "In Progress")
}
