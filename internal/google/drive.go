package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const fileFields = "id,name,mimeType,modifiedTime,size,webViewLink,owners"

// DriveOwner identifies a file owner.
type DriveOwner struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// DriveFile is the metadata subset the drive commands work with. Size
// arrives as a decimal string and is absent for Docs-native files.
type DriveFile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	MimeType     string       `json:"mimeType"`
	ModifiedTime time.Time    `json:"modifiedTime"`
	Size         int64        `json:"size,string,omitempty"`
	WebViewLink  string       `json:"webViewLink,omitempty"`
	Owners       []DriveOwner `json:"owners,omitempty"`
}

// Drive lists, inspects and exports Drive files.
type Drive struct {
	client  *Client
	baseURL string
}

// NewDrive returns a Drive service over client.
func NewDrive(client *Client) *Drive {
	return &Drive{client: client, baseURL: "https://www.googleapis.com/drive/v3"}
}

// List returns files matching a Drive query expression such as
// "mimeType='application/vnd.google-apps.document'". An empty query
// lists recent files.
func (d *Drive) List(ctx context.Context, query string, limit int) ([]DriveFile, error) {
	if limit <= 0 {
		limit = 30
	}

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("orderBy", "modifiedTime desc")
	params.Set("fields", "files("+fileFields+")")

	var payload struct {
		Files []DriveFile `json:"files"`
	}
	if err := d.client.get(ctx, d.baseURL+"/files?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}

// Search lists files whose content matches the given text.
func (d *Drive) Search(ctx context.Context, text string, limit int) ([]DriveFile, error) {
	query := fmt.Sprintf("fullText contains '%s' and trashed = false", escapeDriveQuery(text))
	return d.List(ctx, query, limit)
}

// Get fetches one file's metadata.
func (d *Drive) Get(ctx context.Context, fileID string) (*DriveFile, error) {
	params := url.Values{}
	params.Set("fields", fileFields)

	var file DriveFile
	if err := d.client.get(ctx, d.baseURL+"/files/"+url.PathEscape(fileID)+"?"+params.Encode(), &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Export converts a Docs-native file to the requested MIME type (for
// example text/plain or application/pdf) and returns the raw bytes.
func (d *Drive) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	params := url.Values{}
	params.Set("mimeType", mimeType)

	urlStr := d.baseURL + "/files/" + url.PathEscape(fileID) + "/export?" + params.Encode()
	return d.client.do(ctx, http.MethodGet, urlStr, nil)
}

// escapeDriveQuery escapes backslashes and single quotes for use
// inside Drive query string literals.
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
