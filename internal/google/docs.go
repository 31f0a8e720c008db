package google

import (
	"context"
	"net/url"
	"strings"
)

// Document is the subset of the Docs document shape needed to read a
// document as text.
type Document struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Body       DocBody `json:"body"`
}

// DocBody holds the document's structural elements.
type DocBody struct {
	Content []StructuralElement `json:"content"`
}

// StructuralElement is one block of a document body.
type StructuralElement struct {
	Paragraph *DocParagraph `json:"paragraph,omitempty"`
	Table     *DocTable     `json:"table,omitempty"`
}

// DocParagraph is a run of inline elements.
type DocParagraph struct {
	Elements []ParagraphElement `json:"elements"`
}

// ParagraphElement wraps a text run.
type ParagraphElement struct {
	TextRun *TextRun `json:"textRun,omitempty"`
}

// TextRun carries document text; runs include their own trailing
// newlines.
type TextRun struct {
	Content string `json:"content"`
}

// DocTable is a table of cells, each holding nested body content.
type DocTable struct {
	TableRows []TableRow `json:"tableRows"`
}

// TableRow is one table row.
type TableRow struct {
	TableCells []TableCell `json:"tableCells"`
}

// TableCell holds nested structural elements.
type TableCell struct {
	Content []StructuralElement `json:"content"`
}

// Text flattens the document body to plain text. Table rows become
// tab-separated lines.
func (d *Document) Text() string {
	var b strings.Builder
	writeContent(&b, d.Body.Content)
	return strings.TrimRight(b.String(), "\n")
}

func writeContent(b *strings.Builder, content []StructuralElement) {
	for _, el := range content {
		if el.Paragraph != nil {
			for _, pe := range el.Paragraph.Elements {
				if pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		}
		if el.Table != nil {
			for _, row := range el.Table.TableRows {
				cells := make([]string, 0, len(row.TableCells))
				for _, cell := range row.TableCells {
					cells = append(cells, cellText(cell.Content))
				}
				b.WriteString(strings.Join(cells, "\t"))
				b.WriteString("\n")
			}
		}
	}
}

// cellText flattens a table cell, collapsing inner newlines so the
// cell stays on one line.
func cellText(content []StructuralElement) string {
	var b strings.Builder
	writeContent(&b, content)
	return strings.TrimSpace(strings.ReplaceAll(b.String(), "\n", " "))
}

// Docs fetches and creates Google Docs documents.
type Docs struct {
	client  *Client
	baseURL string
}

// NewDocs returns a Docs service over client.
func NewDocs(client *Client) *Docs {
	return &Docs{client: client, baseURL: "https://docs.googleapis.com/v1"}
}

// Get fetches a document by ID.
func (d *Docs) Get(ctx context.Context, documentID string) (*Document, error) {
	var doc Document
	if err := d.client.get(ctx, d.baseURL+"/documents/"+url.PathEscape(documentID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates an empty document with the given title.
func (d *Docs) Create(ctx context.Context, title string) (*Document, error) {
	body := map[string]string{"title": title}

	var doc Document
	if err := d.client.post(ctx, d.baseURL+"/documents", body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
