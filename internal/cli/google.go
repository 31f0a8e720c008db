package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dverbeek/agent-skills/internal/google"
	"github.com/dverbeek/agent-skills/internal/output"
)

var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Work with Google Drive, Docs, Sheets, Calendar and Gmail",
}

var (
	driveListQuery  string
	driveListLimit  int
	driveExportMime string

	docsCreateTitle string

	sheetsGetRange    string
	sheetsAppendRange string
	sheetsAppendJSON  string

	calEventsCalendar string
	calEventsLimit    int

	calCreateCalendar    string
	calCreateSummary     string
	calCreateDescription string
	calCreateLocation    string
	calCreateStart       string
	calCreateEnd         string

	gmailListLimit   int
	gmailSearchLimit int
)

var googleAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Google OAuth session",
}

var googleAuthLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize via the browser consent flow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens, err := googleTokens()
		if err != nil {
			return err
		}

		token, err := tokens.Login(cmd.Context(), func(authURL string) {
			printer.Line("Open this URL in your browser to authorize:")
			printer.Blank()
			printer.Line("  %s", authURL)
			printer.Blank()
			printer.Line("Waiting for the browser callback...")
		})
		if err != nil {
			return err
		}

		if token.Email != "" {
			printer.Line("Logged in as %s", token.Email)
		} else {
			printer.Line("Logged in.")
		}
		return nil
	},
}

var googleAuthStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens, err := googleTokens()
		if err != nil {
			return err
		}

		token, err := tokens.Load()
		if errors.Is(err, google.ErrNotLoggedIn) {
			if printer.IsJSON() {
				return printer.JSON(map[string]any{"logged_in": false})
			}
			printer.Line("Not logged in.")
			printer.Hint("run `skills google auth login`")
			return nil
		}
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(map[string]any{
				"logged_in": true,
				"email":     token.Email,
				"expiry":    token.Expiry,
			})
		}
		printer.Line("Logged in.")
		if token.Email != "" {
			printer.Field("Account", token.Email)
		}
		if !token.Expiry.IsZero() {
			printer.Field("Token expires", token.Expiry.Format("2006-01-02 15:04"))
		}
		if token.RefreshToken != "" {
			printer.Field("Refresh", "automatic")
		}
		return nil
	},
}

var googleAuthLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens, err := googleTokens()
		if err != nil {
			return err
		}
		if err := tokens.Logout(); err != nil {
			return err
		}
		printer.Line("Logged out.")
		return nil
	},
}

var googleDriveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive file commands",
}

var googleDriveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		files, err := google.NewDrive(client).List(cmd.Context(), driveListQuery, driveListLimit)
		if err != nil {
			return err
		}
		return renderDriveFiles(printer, files)
	},
}

var googleDriveSearchCmd = &cobra.Command{
	Use:   "search TEXT",
	Short: "Find files by content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		files, err := google.NewDrive(client).Search(cmd.Context(), args[0], driveListLimit)
		if err != nil {
			return err
		}
		return renderDriveFiles(printer, files)
	},
}

var googleDriveGetCmd = &cobra.Command{
	Use:   "get FILE_ID",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		file, err := google.NewDrive(client).Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(file)
		}
		printer.Title(file.Name)
		printer.Field("ID", file.ID)
		printer.Field("Type", file.MimeType)
		if file.Size > 0 {
			printer.Field("Size", fmt.Sprintf("%d bytes", file.Size))
		}
		printer.Field("Modified", file.ModifiedTime.Format("2006-01-02 15:04"))
		for _, owner := range file.Owners {
			printer.Field("Owner", fmt.Sprintf("%s <%s>", owner.DisplayName, owner.EmailAddress))
		}
		if file.WebViewLink != "" {
			printer.Field("Link", file.WebViewLink)
		}
		return nil
	},
}

var googleDriveExportCmd = &cobra.Command{
	Use:   "export FILE_ID",
	Short: "Export a Docs-native file",
	Long: `Converts a Docs-native file to the requested MIME type and writes the
raw result to stdout, so binary formats like PDF survive redirection.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		data, err := google.NewDrive(client).Export(cmd.Context(), args[0], driveExportMime)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var googleDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Docs document commands",
}

var googleDocsGetCmd = &cobra.Command{
	Use:   "get DOC_ID",
	Short: "Read a document as plain text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		doc, err := google.NewDocs(client).Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(map[string]string{
				"documentId": doc.DocumentID,
				"title":      doc.Title,
				"text":       doc.Text(),
			})
		}
		printer.Title(doc.Title)
		if text := doc.Text(); text != "" {
			printer.Blank()
			printer.Line("%s", text)
		}
		return nil
	},
}

var googleDocsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		doc, err := google.NewDocs(client).Create(cmd.Context(), docsCreateTitle)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(doc)
		}
		printer.Line("Created document %s (%s)", doc.DocumentID, doc.Title)
		return nil
	},
}

var googleSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Sheets spreadsheet commands",
}

var googleSheetsGetCmd = &cobra.Command{
	Use:   "get SHEET_ID",
	Short: "Read a cell range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		values, err := google.NewSheets(client).Values(cmd.Context(), args[0], sheetsGetRange)
		if err != nil {
			return err
		}
		return renderSheetValues(printer, values)
	},
}

var googleSheetsAppendCmd = &cobra.Command{
	Use:   "append SHEET_ID",
	Short: "Append rows to a range",
	Long: `Appends rows after the last data row of the range. Rows are given as
a JSON array of arrays, e.g. --values '[["2025-06-01","deploy",3]]'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseSheetRows(sheetsAppendJSON)
		if err != nil {
			return err
		}

		client, err := googleClient()
		if err != nil {
			return err
		}

		result, err := google.NewSheets(client).Append(cmd.Context(), args[0], sheetsAppendRange, values)
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(result)
		}
		printer.Line("Appended %d rows (%d cells) at %s", result.UpdatedRows, result.UpdatedCells, result.UpdatedRange)
		return nil
	},
}

var googleCalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Calendar event commands",
}

var googleCalendarEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List upcoming events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := googleClient()
		if err != nil {
			return err
		}

		events, err := google.NewCalendar(client).Events(cmd.Context(), calEventsCalendar, time.Time{}, calEventsLimit)
		if err != nil {
			return err
		}
		return renderEvents(printer, events)
	},
}

var googleCalendarCreateCmd = &cobra.Command{
	Use:   "create-event",
	Short: "Create an event",
	Long: `Creates an event. Times accept RFC 3339 ("2025-06-01T14:00:00+02:00"),
a local "2006-01-02 15:04", or a bare date for all-day events.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, err := parseEventTime(calCreateStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := parseEventTime(calCreateEnd)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}

		client, err := googleClient()
		if err != nil {
			return err
		}

		event, err := google.NewCalendar(client).CreateEvent(cmd.Context(), calCreateCalendar, google.Event{
			Summary:     calCreateSummary,
			Description: calCreateDescription,
			Location:    calCreateLocation,
			Start:       start,
			End:         end,
		})
		if err != nil {
			return err
		}

		if printer.IsJSON() {
			return printer.JSON(event)
		}
		printer.Line("Created event %s (%s)", event.ID, event.Summary)
		if event.HTMLLink != "" {
			printer.Hint(event.HTMLLink)
		}
		return nil
	},
}

var googleGmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Gmail inbox commands",
}

var googleGmailListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent inbox messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gm, err := gmailClient()
		if err != nil {
			return err
		}

		envelopes, err := gm.List(cmd.Context(), gmailListLimit)
		if err != nil {
			return err
		}
		return renderEnvelopes(printer, envelopes)
	},
}

var googleGmailSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search inbox messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gm, err := gmailClient()
		if err != nil {
			return err
		}

		envelopes, err := gm.Search(cmd.Context(), args[0], gmailSearchLimit)
		if err != nil {
			return err
		}
		return renderEnvelopes(printer, envelopes)
	},
}

var googleGmailReadCmd = &cobra.Command{
	Use:   "read UID",
	Short: "Read one message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message UID %q", args[0])
		}

		gm, err := gmailClient()
		if err != nil {
			return err
		}

		msg, err := gm.Read(cmd.Context(), uint32(uid))
		if err != nil {
			return err
		}
		return renderGmailMessage(printer, msg)
	},
}

// parseEventTime accepts the calendar flag time formats and maps a bare
// date to an all-day event time.
func parseEventTime(value string) (google.EventTime, error) {
	if value == "" {
		return google.EventTime{}, fmt.Errorf("missing time")
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return google.EventTime{Date: value}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return google.EventTime{DateTime: t.Format(time.RFC3339)}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local); err == nil {
		return google.EventTime{DateTime: t.Format(time.RFC3339)}, nil
	}
	return google.EventTime{}, fmt.Errorf("%q is not RFC 3339, \"2006-01-02 15:04\" or a date", value)
}

// parseSheetRows decodes the --values JSON rows.
func parseSheetRows(raw string) ([][]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("missing --values")
	}
	var rows [][]any
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf(`invalid --values %q (expected JSON rows like [["a",1]])`, raw)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("--values holds no rows")
	}
	return rows, nil
}

func renderDriveFiles(p *output.Printer, files []google.DriveFile) error {
	if p.IsJSON() {
		return p.JSON(files)
	}

	if len(files) == 0 {
		p.Line("No files found.")
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.ID,
			f.ModifiedTime.Format("2006-01-02"),
			shortMime(f.MimeType),
			f.Name,
		})
	}
	p.Table([]string{"ID", "MODIFIED", "TYPE", "NAME"}, rows)
	return nil
}

// shortMime compresses the Docs-native MIME types for table display.
func shortMime(mime string) string {
	if rest, ok := strings.CutPrefix(mime, "application/vnd.google-apps."); ok {
		return rest
	}
	return mime
}

func renderSheetValues(p *output.Printer, values *google.ValueRange) error {
	if p.IsJSON() {
		return p.JSON(values)
	}

	if len(values.Values) == 0 {
		p.Line("No values in range %s.", values.Range)
		return nil
	}

	p.Field("Range", values.Range)
	for _, row := range values.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		p.Line("%s", strings.Join(cells, "\t"))
	}
	return nil
}

func renderEvents(p *output.Printer, events []google.Event) error {
	if p.IsJSON() {
		return p.JSON(events)
	}

	if len(events) == 0 {
		p.Line("No upcoming events.")
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{ev.Start.When(), ev.Summary, ev.Location})
	}
	p.Table([]string{"START", "SUMMARY", "LOCATION"}, rows)
	return nil
}

func renderEnvelopes(p *output.Printer, envelopes []google.Envelope) error {
	if p.IsJSON() {
		return p.JSON(envelopes)
	}

	if len(envelopes) == 0 {
		p.Line("No messages found.")
		return nil
	}

	// IMAP search returns oldest first; show newest on top.
	rows := make([][]string, 0, len(envelopes))
	for i := len(envelopes) - 1; i >= 0; i-- {
		env := envelopes[i]
		rows = append(rows, []string{
			strconv.FormatUint(uint64(env.UID), 10),
			env.Date.Format("2006-01-02 15:04"),
			env.From,
			env.Subject,
		})
	}
	p.Table([]string{"UID", "DATE", "FROM", "SUBJECT"}, rows)
	return nil
}

func renderGmailMessage(p *output.Printer, msg *google.Message) error {
	if p.IsJSON() {
		return p.JSON(msg)
	}

	p.Title(msg.Envelope.Subject)
	p.Field("From", msg.Envelope.From)
	if len(msg.Envelope.To) > 0 {
		p.Field("To", strings.Join(msg.Envelope.To, ", "))
	}
	p.Field("Date", msg.Envelope.Date.Format("2006-01-02 15:04"))

	body := msg.TextBody
	if body == "" && msg.HTMLBody != "" {
		body = msg.HTMLBody
	}
	if body != "" {
		p.Blank()
		p.Line("%s", strings.TrimSpace(body))
	}

	if len(msg.Attachments) > 0 {
		p.Blank()
		for _, a := range msg.Attachments {
			p.Line("Attachment: %s (%s, %d bytes)", a.Filename, a.MIMEType, a.Size)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(googleCmd)

	googleCmd.AddCommand(googleAuthCmd)
	googleAuthCmd.AddCommand(googleAuthLoginCmd)
	googleAuthCmd.AddCommand(googleAuthStatusCmd)
	googleAuthCmd.AddCommand(googleAuthLogoutCmd)

	googleCmd.AddCommand(googleDriveCmd)
	googleDriveCmd.AddCommand(googleDriveListCmd)
	googleDriveCmd.AddCommand(googleDriveSearchCmd)
	googleDriveCmd.AddCommand(googleDriveGetCmd)
	googleDriveCmd.AddCommand(googleDriveExportCmd)

	googleCmd.AddCommand(googleDocsCmd)
	googleDocsCmd.AddCommand(googleDocsGetCmd)
	googleDocsCmd.AddCommand(googleDocsCreateCmd)

	googleCmd.AddCommand(googleSheetsCmd)
	googleSheetsCmd.AddCommand(googleSheetsGetCmd)
	googleSheetsCmd.AddCommand(googleSheetsAppendCmd)

	googleCmd.AddCommand(googleCalendarCmd)
	googleCalendarCmd.AddCommand(googleCalendarEventsCmd)
	googleCalendarCmd.AddCommand(googleCalendarCreateCmd)

	googleCmd.AddCommand(googleGmailCmd)
	googleGmailCmd.AddCommand(googleGmailListCmd)
	googleGmailCmd.AddCommand(googleGmailSearchCmd)
	googleGmailCmd.AddCommand(googleGmailReadCmd)

	googleDriveListCmd.Flags().StringVar(&driveListQuery, "query", "", "Drive query expression")
	googleDriveListCmd.Flags().IntVar(&driveListLimit, "limit", 30, "maximum files to return")
	googleDriveSearchCmd.Flags().IntVar(&driveListLimit, "limit", 30, "maximum files to return")
	googleDriveExportCmd.Flags().StringVar(&driveExportMime, "mime", "text/plain", "export MIME type")

	googleDocsCreateCmd.Flags().StringVar(&docsCreateTitle, "title", "", "document title")
	_ = googleDocsCreateCmd.MarkFlagRequired("title")

	googleSheetsGetCmd.Flags().StringVar(&sheetsGetRange, "range", "", "A1 range, e.g. Sheet1!A1:C10")
	_ = googleSheetsGetCmd.MarkFlagRequired("range")
	googleSheetsAppendCmd.Flags().StringVar(&sheetsAppendRange, "range", "", "A1 range to append after")
	googleSheetsAppendCmd.Flags().StringVar(&sheetsAppendJSON, "values", "", "rows as a JSON array of arrays")
	_ = googleSheetsAppendCmd.MarkFlagRequired("range")
	_ = googleSheetsAppendCmd.MarkFlagRequired("values")

	googleCalendarEventsCmd.Flags().StringVar(&calEventsCalendar, "calendar", "", "calendar id (default primary)")
	googleCalendarEventsCmd.Flags().IntVar(&calEventsLimit, "limit", 10, "maximum events to return")

	googleCalendarCreateCmd.Flags().StringVar(&calCreateCalendar, "calendar", "", "calendar id (default primary)")
	googleCalendarCreateCmd.Flags().StringVar(&calCreateSummary, "summary", "", "event title")
	googleCalendarCreateCmd.Flags().StringVar(&calCreateDescription, "description", "", "event description")
	googleCalendarCreateCmd.Flags().StringVar(&calCreateLocation, "location", "", "event location")
	googleCalendarCreateCmd.Flags().StringVar(&calCreateStart, "start", "", "start time")
	googleCalendarCreateCmd.Flags().StringVar(&calCreateEnd, "end", "", "end time")
	_ = googleCalendarCreateCmd.MarkFlagRequired("summary")
	_ = googleCalendarCreateCmd.MarkFlagRequired("start")
	_ = googleCalendarCreateCmd.MarkFlagRequired("end")

	googleGmailListCmd.Flags().IntVar(&gmailListLimit, "limit", 20, "maximum messages to return")
	googleGmailSearchCmd.Flags().IntVar(&gmailSearchLimit, "limit", 20, "maximum messages to return")
}
