package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Reports are capped at reportWidth columns and never wrap narrower than
// minReportWidth.
const (
	reportWidth    = 100
	minReportWidth = 40
)

// PrintMarkdown writes a report to Stdout. On a terminal it is rendered
// with glamour; redirected to a file or pipe the markdown is written as is.
func PrintMarkdown(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	out := text
	if width, tty := terminalWidth(Stdout); tty {
		rendered, err := renderMarkdown(text, width)
		if err != nil {
			return err
		}
		out = rendered
	}
	_, err := fmt.Fprintln(Stdout, strings.TrimRight(out, "\n"))
	return err
}

// terminalWidth reports the usable width of w and whether w is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return reportWidth, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 || width > reportWidth {
		width = reportWidth
	}
	return width, true
}

func renderMarkdown(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if width < minReportWidth {
		width = minReportWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return renderer.Render(text)
}

// MarkdownTable builds a GitHub-style table. Pipes in cells are escaped.
func MarkdownTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := range headers {
			c := ""
			if i < len(cells) {
				c = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			sb.WriteString(" " + c + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range rows {
		writeRow(r)
	}
	return sb.String()
}
