// Package output provides styled terminal output helpers for the CLI
// commands (success, error and warning lines, people and journal events)
// using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/portrait/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	eventStyles  = map[models.EventType]lipgloss.Style{
		models.EventCommitted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.EventDiscarded: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.EventSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.EventFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.EventArchived:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.EventWalkIn:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

// Stdout and Stderr are where messages go; tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Fprintln(Stdout, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message to stderr
func Error(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, errorStyle.Render("ERROR: "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Fprintln(Stdout, warningStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Warnings prints one warning line per error.
func Warnings(errs []error) {
	for _, err := range errs {
		Warning("%v", err)
	}
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Fprintln(Stdout, fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(Stdout, string(data))
	return nil
}

// FormatPerson formats a roster entry on one line:
// "1001  Ammann, Lea" or "neu   Müller, Zoe" for walk-ins.
func FormatPerson(p models.Person) string {
	id := subtleStyle.Render(fmt.Sprintf("%-6s", p.StudentID))
	if p.IsNew {
		id = newStyle.Render(fmt.Sprintf("%-6s", "neu"))
	}
	return id + titleStyle.Render(p.LastName+", "+p.FirstName)
}

// FormatEventType formats an event type with color
func FormatEventType(t models.EventType) string {
	style, ok := eventStyles[t]
	if !ok {
		return string(t)
	}
	return style.Render(fmt.Sprintf("[%s]", t))
}

// FormatEvent formats a journal event in short format
func FormatEvent(e models.Event) string {
	parts := []string{
		subtleStyle.Render(e.Timestamp.Local().Format("02.01. 15:04")),
		FormatEventType(e.Type),
		e.Location + "/" + e.ClassName,
	}
	if e.Name != "" {
		parts = append(parts, e.Name)
	}
	if e.Detail != "" {
		parts = append(parts, subtleStyle.Render(e.Detail))
	}
	return strings.Join(parts, "  ")
}

// FormatMissed formats a missed-appointment log row
func FormatMissed(e models.MissedEntry) string {
	return fmt.Sprintf("%s  %s/%s  %s, %s  %s",
		subtleStyle.Render(e.Timestamp.Format("02.01.2006 15:04")),
		e.Location, e.ClassName,
		e.LastName, e.FirstName,
		warningStyle.Render(e.Reason))
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// CheckLine formats a doctor check result: "✓ name  detail" or "✗ name  detail".
func CheckLine(name string, err error, detail string) string {
	if err != nil {
		return errorStyle.Render("✗ "+name) + "  " + err.Error()
	}
	line := successStyle.Render("✓ " + name)
	if detail != "" {
		line += "  " + subtleStyle.Render(detail)
	}
	return line
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nCLASSES:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
