// Package output renders command results. Commands write either
// human-readable text through lipgloss styles or pretty-printed JSON,
// selected by the global --output flag. Rendering always goes through
// an injected io.Writer so command tests can capture it.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dverbeek/agent-skills/internal/theme"
)

// Format selects how command results are rendered.
type Format string

const (
	// FormatText renders styled human-readable output.
	FormatText Format = "text"
	// FormatJSON renders pretty-printed JSON.
	FormatJSON Format = "json"
)

// ParseFormat resolves the --output flag value.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text or json)", name)
	}
}

// Printer writes rendered command results to a single destination.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter returns a Printer writing to w in the given format.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// IsJSON reports whether the caller asked for JSON output.
func (p *Printer) IsJSON() bool {
	return p.format == FormatJSON
}

// JSON pretty-prints v followed by a newline.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// RawJSON re-indents an already encoded JSON payload and prints it.
// Invalid JSON is printed as-is.
func (p *Printer) RawJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		_, werr := fmt.Fprintln(p.w, string(data))
		return werr
	}
	return p.JSON(v)
}

// Line writes a single formatted line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Blank writes an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}

// Title writes a styled section header.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, theme.TitleStyle.Render(text))
}

// Field writes a "name: value" detail line with a styled name.
func (p *Printer) Field(name, value string) {
	fmt.Fprintf(p.w, "%s %s\n", theme.FieldStyle.Render(name+":"), value)
}

// Hint writes a muted follow-up hint.
func (p *Printer) Hint(text string) {
	fmt.Fprintln(p.w, theme.HintStyle.Render(text))
}

// Status renders a status value with its conventional color.
func (p *Printer) Status(status string) string {
	return theme.StatusStyle(status).Render(status)
}

// Table renders headers and rows as a bordered list table.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeaderStyle
			}
			return theme.TableCellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(p.w, t.Render())
}
