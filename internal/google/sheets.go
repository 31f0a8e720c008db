package google

import (
	"context"
	"net/url"
)

// ValueRange mirrors the Sheets values API shape. Cell values arrive
// as strings, numbers or booleans depending on cell formatting.
type ValueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values,omitempty"`
}

// AppendResult reports what an append call changed.
type AppendResult struct {
	UpdatedRange string `json:"updatedRange"`
	UpdatedRows  int    `json:"updatedRows"`
	UpdatedCells int    `json:"updatedCells"`
}

// Sheets reads and appends spreadsheet values.
type Sheets struct {
	client  *Client
	baseURL string
}

// NewSheets returns a Sheets service over client.
func NewSheets(client *Client) *Sheets {
	return &Sheets{client: client, baseURL: "https://sheets.googleapis.com/v4"}
}

// Values reads a range in A1 notation, such as "Sheet1!A1:C10".
func (s *Sheets) Values(ctx context.Context, spreadsheetID, valueRange string) (*ValueRange, error) {
	urlStr := s.baseURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "/values/" + url.PathEscape(valueRange)

	var result ValueRange
	if err := s.client.get(ctx, urlStr, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Append appends rows after the last row of data within the range.
// Values are interpreted as if typed by the user, so "=SUM(A1:A2)"
// becomes a formula and "2025-06-01" a date.
func (s *Sheets) Append(ctx context.Context, spreadsheetID, valueRange string, values [][]any) (*AppendResult, error) {
	params := url.Values{}
	params.Set("valueInputOption", "USER_ENTERED")
	params.Set("insertDataOption", "INSERT_ROWS")

	urlStr := s.baseURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) +
		"/values/" + url.PathEscape(valueRange) + ":append?" + params.Encode()

	var payload struct {
		Updates AppendResult `json:"updates"`
	}
	if err := s.client.post(ctx, urlStr, ValueRange{Values: values}, &payload); err != nil {
		return nil, err
	}
	return &payload.Updates, nil
}
