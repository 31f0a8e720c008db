package google

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

const (
	gmailIMAPAddr = "imap.gmail.com:993"

	// listWindowDays bounds the UID search so a full mailbox is never
	// scanned.
	listWindowDays = 7
)

// Envelope holds the parsed envelope data of one message.
type Envelope struct {
	UID     uint32    `json:"uid"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	To      []string  `json:"to,omitempty"`
	Date    time.Time `json:"date"`
	Flags   []string  `json:"flags,omitempty"`
}

// Message is a fully fetched message with its parsed MIME content.
type Message struct {
	Envelope    Envelope     `json:"envelope"`
	TextBody    string       `json:"text_body,omitempty"`
	HTMLBody    string       `json:"html_body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment holds attachment metadata; content is never downloaded.
type Attachment struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// Gmail reads a Gmail mailbox over IMAP. The password is an app
// password, or an OAuth access token for accounts configured for
// XOAUTH-less token login.
type Gmail struct {
	addr     string
	username string
	password string
}

// NewGmail returns a Gmail client for the given account.
func NewGmail(username, password string) *Gmail {
	return &Gmail{
		addr:     gmailIMAPAddr,
		username: username,
		password: password,
	}
}

// connect dials the IMAP server and authenticates. The caller owns
// the returned client and must Logout.
func (g *Gmail) connect(_ context.Context) (*imapclient.Client, error) {
	client, err := imapclient.DialTLS(g.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", g.addr, err)
	}

	if err := client.Login(g.username, g.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("gmail authentication failed for %s: %w", g.username, err)
	}
	return client, nil
}

// List returns the most recent INBOX messages from the last few days.
func (g *Gmail) List(ctx context.Context, limit int) ([]Envelope, error) {
	since := time.Now().AddDate(0, 0, -listWindowDays)
	return g.search(ctx, &imap.SearchCriteria{Since: since}, limit)
}

// Search finds messages whose headers or body contain query.
func (g *Gmail) Search(ctx context.Context, query string, limit int) ([]Envelope, error) {
	return g.search(ctx, &imap.SearchCriteria{Text: []string{query}}, limit)
}

func (g *Gmail) search(ctx context.Context, criteria *imap.SearchCriteria, limit int) ([]Envelope, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var envelopes []Envelope
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		envelopes = append(envelopes, envelopeFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return envelopes, fmt.Errorf("fetching envelopes: %w", err)
	}
	return envelopes, nil
}

// Read fetches the full message body for a UID and parses its MIME
// structure. The fetch peeks, so the message stays unread.
func (g *Gmail) Read(ctx context.Context, uid uint32) (*Message, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	message := &Message{Envelope: envelopeFromBuffer(buf)}

	if rawBody := buf.FindBodySection(bodySection); rawBody != nil {
		message.TextBody, message.HTMLBody, message.Attachments = parseMIMEBody(rawBody)
	}

	if err := fetchCmd.Close(); err != nil {
		return message, fmt.Errorf("closing fetch: %w", err)
	}
	return message, nil
}

// envelopeFromBuffer extracts an Envelope from a fetched message.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				env.From = from.Name
			} else {
				env.From = from.Addr()
			}
		}

		for _, to := range buf.Envelope.To {
			env.To = append(env.To, to.Addr())
		}
	}

	for _, flag := range buf.Flags {
		env.Flags = append(env.Flags, string(flag))
	}
	return env
}

// parseMIMEBody parses a raw RFC 2822 message and extracts the
// text/plain body, text/html body, and attachment metadata.
func parseMIMEBody(raw []byte) (textBody, htmlBody string, attachments []Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not MIME; treat the whole payload as plain text.
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			attachments = append(attachments, Attachment{
				Filename: filename,
				Size:     int64(len(body)),
				MIMEType: contentType,
			})
		}
	}

	return textBody, htmlBody, attachments
}
