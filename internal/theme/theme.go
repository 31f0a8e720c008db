package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// TitleStyle is used for top-level section headers in command output.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// FieldStyle is used for field names in detail views.
var FieldStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray)

// TableHeaderStyle is used for column headers in list output.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Padding(0, 1)

// TableCellStyle is the base style for table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// TableBorderStyle colors the table frame.
var TableBorderStyle = lipgloss.NewStyle().
	Foreground(ColorBorder)

// HintStyle is used for follow-up hints printed after command output.
var HintStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// OKStyle marks passing checks and successful operations.
var OKStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// FailStyle marks failing checks.
var FailStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// WarnStyle marks degraded but non-fatal check results.
var WarnStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// StatusStyle returns a color-coded style for a work item status.
// Statuses are matched case-insensitively across services.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch strings.ToLower(status) {
	case "open", "opened", "new", "to do", "todo", "backlog":
		return base.Foreground(ColorBlue)
	case "in progress", "pending", "running", "queued", "started":
		return base.Foreground(ColorYellow)
	case "in review", "review", "review_required", "changes_requested":
		return base.Foreground(ColorMagenta)
	case "done", "closed", "merged", "resolved", "success", "approved", "passed":
		return base.Foreground(ColorGreen)
	case "failed", "failure", "error", "abandoned", "canceled", "declined":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// ServiceStyle returns a color-coded style for a service label.
func ServiceStyle(service string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch service {
	case "jira", "confluence":
		return base.Foreground(ColorBlue)
	case "github":
		return base.Foreground(ColorMagenta)
	case "gitlab":
		return base.Foreground(ColorOrange)
	case "gerrit":
		return base.Foreground(ColorYellow)
	case "google":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}
