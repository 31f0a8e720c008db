package google

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// EventTime is either a timed dateTime or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// When returns whichever representation is set.
func (t EventTime) When() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// EventAttendee is one invitee on an event.
type EventAttendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// Event is a calendar event.
type Event struct {
	ID          string          `json:"id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Start       EventTime       `json:"start"`
	End         EventTime       `json:"end"`
	Attendees   []EventAttendee `json:"attendees,omitempty"`
	HTMLLink    string          `json:"htmlLink,omitempty"`
}

// Calendar lists and creates events.
type Calendar struct {
	client  *Client
	baseURL string
}

// NewCalendar returns a Calendar service over client.
func NewCalendar(client *Client) *Calendar {
	return &Calendar{client: client, baseURL: "https://www.googleapis.com/calendar/v3"}
}

// Events lists upcoming events from a calendar, expanded to single
// instances and ordered by start time. An empty calendarID means the
// account's primary calendar; a zero from means now.
func (c *Calendar) Events(ctx context.Context, calendarID string, from time.Time, limit int) ([]Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if from.IsZero() {
		from = time.Now()
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("timeMin", from.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", strconv.Itoa(limit))

	urlStr := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events?" + params.Encode()

	var payload struct {
		Items []Event `json:"items"`
	}
	if err := c.client.get(ctx, urlStr, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// CreateEvent inserts an event into a calendar.
func (c *Calendar) CreateEvent(ctx context.Context, calendarID string, event Event) (*Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}

	var created Event
	if err := c.client.post(ctx, c.baseURL+"/calendars/"+url.PathEscape(calendarID)+"/events", event, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
