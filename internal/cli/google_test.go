package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/agent-skills/internal/google"
	"github.com/dverbeek/agent-skills/internal/output"
)

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  google.EventTime
	}{
		{
			name:  "bare date becomes all-day",
			input: "2025-06-01",
			want:  google.EventTime{Date: "2025-06-01"},
		},
		{
			name:  "rfc3339 kept as-is",
			input: "2025-06-01T14:00:00+02:00",
			want:  google.EventTime{DateTime: "2025-06-01T14:00:00+02:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEventTime(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEventTimeLocal(t *testing.T) {
	got, err := parseEventTime("2025-06-01 14:00")
	require.NoError(t, err)

	parsed, err := time.Parse(time.RFC3339, got.DateTime)
	require.NoError(t, err)
	assert.Equal(t, 14, parsed.Hour())
	assert.Empty(t, got.Date)
}

func TestParseEventTimeRejectsGarbage(t *testing.T) {
	_, err := parseEventTime("next tuesday")
	assert.Error(t, err)

	_, err = parseEventTime("")
	assert.Error(t, err)
}

func TestParseSheetRows(t *testing.T) {
	rows, err := parseSheetRows(`[["2025-06-01","deploy",3],["2025-06-02","rollback",1]]`)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "deploy", rows[0][1])
	assert.Equal(t, float64(3), rows[0][2])
}

func TestParseSheetRowsRejectsInvalid(t *testing.T) {
	_, err := parseSheetRows(`{"a":1}`)
	assert.ErrorContains(t, err, "invalid --values")

	_, err = parseSheetRows("")
	assert.ErrorContains(t, err, "missing --values")

	_, err = parseSheetRows("[]")
	assert.ErrorContains(t, err, "no rows")
}

func TestShortMime(t *testing.T) {
	assert.Equal(t, "document", shortMime("application/vnd.google-apps.document"))
	assert.Equal(t, "spreadsheet", shortMime("application/vnd.google-apps.spreadsheet"))
	assert.Equal(t, "application/pdf", shortMime("application/pdf"))
}

func TestRenderEnvelopesNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	envelopes := []google.Envelope{
		{UID: 101, Subject: "older", From: "a@example.com", Date: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
		{UID: 102, Subject: "newer", From: "b@example.com", Date: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, renderEnvelopes(p, envelopes))

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("newer")), bytes.Index(buf.Bytes(), []byte("older")))
	assert.Contains(t, out, "101")
	assert.Contains(t, out, "102")
}

func TestRenderEnvelopesEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	require.NoError(t, renderEnvelopes(p, nil))
	assert.Equal(t, "No messages found.\n", buf.String())
}

func TestRenderGmailMessage(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	msg := &google.Message{
		Envelope: google.Envelope{
			Subject: "Deploy window tonight",
			From:    "ops@example.com",
			To:      []string{"team@example.com"},
			Date:    time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		},
		TextBody: "Starting at 22:00 UTC.",
		Attachments: []google.Attachment{
			{Filename: "plan.pdf", Size: 1024, MIMEType: "application/pdf"},
		},
	}
	require.NoError(t, renderGmailMessage(p, msg))

	out := buf.String()
	assert.Contains(t, out, "Deploy window tonight")
	assert.Contains(t, out, "ops@example.com")
	assert.Contains(t, out, "Starting at 22:00 UTC.")
	assert.Contains(t, out, "plan.pdf")
}

func TestRenderGmailMessageFallsBackToHTML(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	msg := &google.Message{
		Envelope: google.Envelope{Subject: "s", From: "a@example.com"},
		HTMLBody: "<p>only html</p>",
	}
	require.NoError(t, renderGmailMessage(p, msg))
	assert.Contains(t, buf.String(), "only html")
}

func TestRenderSheetValues(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatText)

	values := &google.ValueRange{
		Range:  "Sheet1!A1:B2",
		Values: [][]any{{"name", "count"}, {"deploys", float64(7)}},
	}
	require.NoError(t, renderSheetValues(p, values))

	out := buf.String()
	assert.Contains(t, out, "Sheet1!A1:B2")
	assert.Contains(t, out, "name\tcount")
	assert.Contains(t, out, "deploys\t7")
}
