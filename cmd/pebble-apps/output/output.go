// Package output prints human and JSON command results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// Writer is where messages go. Tests swap it.
var Writer io.Writer = os.Stdout

func line(icon string, format string, args ...any) {
	_, _ = fmt.Fprintf(Writer, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

// Success prints a success message
func Success(format string, args ...any) { line(successStyle.Render("✓"), format, args...) }

// Warning prints a warning message
func Warning(format string, args ...any) { line(warningStyle.Render("⚠"), format, args...) }

// Error prints an error message
func Error(format string, args ...any) { line(errorStyle.Render("✗"), format, args...) }

// Info prints an info message
func Info(format string, args ...any) { line(infoStyle.Render("ℹ"), format, args...) }

// Muted prints a muted message
func Muted(format string, args ...any) {
	_, _ = fmt.Fprintln(Writer, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header underlined to the title's width.
func Section(title string) {
	_, _ = fmt.Fprintf(Writer, "\n%s\n%s\n\n",
		primaryStyle.Render(title),
		mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
}

// StatusIcon returns a colored migration status icon
func StatusIcon(status string) string {
	switch status {
	case "applied":
		return successStyle.Render("✓")
	case "pending":
		return warningStyle.Render("○")
	case "failed":
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("•")
	}
}

// Table prints rows under headers, aligned with tabs.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(w, strings.Join(dashes, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// JSON prints v as indented JSON.
func JSON(v any) error {
	enc := json.NewEncoder(Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
