package audit

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#101F38")).Background(lipgloss.Color("#8BC34A")).Padding(0, 1)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	issueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
)

// Render writes the report as styled terminal text
func Render(w io.Writer, r *Report) error {
	_, err := io.WriteString(w, Format(r))
	return err
}

// Format returns the styled terminal text of a report
func Format(r *Report) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(r.Title))
	sb.WriteString("\n\n")

	for _, s := range r.Sections {
		sb.WriteString(headingStyle.Render(s.Heading))
		sb.WriteString("\n")
		for _, l := range s.Lines {
			sb.WriteString("  ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		if s.Table != nil {
			sb.WriteString(renderGrid(s.Table))
		}
		sb.WriteString("\n")
	}

	for _, i := range r.Issues {
		sb.WriteString(issueStyle.Render("[ISSUE] " + i))
		sb.WriteString("\n")
	}
	for _, wn := range r.Warnings {
		sb.WriteString(warnStyle.Render("[WARNING] " + wn))
		sb.WriteString("\n")
	}

	verdict := r.Verdict()
	style := passStyle
	switch verdict {
	case VerdictFail:
		style = issueStyle.Bold(true)
	case VerdictPassWarnings:
		style = warnStyle.Bold(true)
	}
	sb.WriteString(style.Render("VERDICT: " + verdict))
	sb.WriteString("\n")
	return sb.String()
}

func renderGrid(g *Grid) string {
	if len(g.Rows) == 0 {
		return ""
	}
	widths := make([]int, len(g.Header))
	for i, h := range g.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range g.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Width includes the padding
	for i := range widths {
		widths[i] += 2
	}

	sep := mutedStyle.Render("|")
	var sb strings.Builder
	cells := make([]string, len(g.Header))
	for i, h := range g.Header {
		cells[i] = headerStyle.Width(widths[i]).Render(h)
	}
	sb.WriteString(strings.Join(cells, sep))
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range g.Rows {
		cells = cells[:0]
		for i, cell := range row {
			if i < len(widths) {
				cells = append(cells, cellStyle.Width(widths[i]).Render(cell))
			}
		}
		sb.WriteString(strings.Join(cells, sep))
		sb.WriteString("\n")
	}
	return sb.String()
}
