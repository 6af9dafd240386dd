package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"adshub/internal/operations"
	"adshub/internal/services"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	statusStyles = map[string]lipgloss.Style{
		string(operations.StepStatusCompleted): lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Padding(0, 1),
		string(operations.StepStatusFailed):    lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Padding(0, 1),
		string(operations.StepStatusSkipped):   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Padding(0, 1),
	}
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderRun prints each stage of a run in pipeline order, then the overall
// status
func renderRun(resp *operations.OperationResponse, order []operations.OperationType) string {
	ids := make([]string, 0, len(resp.Steps))
	seen := make(map[string]bool, len(resp.Steps))
	for _, s := range order {
		if _, ok := resp.Steps[s.ID]; ok {
			ids = append(ids, s.ID)
			seen[s.ID] = true
		}
	}
	for id := range resp.Steps {
		if !seen[id] {
			ids = append(ids, id)
		}
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		st := resp.Steps[id]
		detail := st.Message
		if figures := formatFigures(st.MetadataCopy()); figures != "" {
			detail = figures
		}
		rows = append(rows, []string{id, string(st.GetStatus()), st.Duration().Round(time.Millisecond).String(), detail})
	}

	t := newTable("Stage", "Status", "Duration", "Details").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row < len(rows) {
				if s, ok := statusStyles[rows[row][1]]; ok {
					return s
				}
			}
			return cellStyle
		})

	summary := fmt.Sprintf("Operation %s %s in %s", resp.ID, resp.Status, resp.Duration.Round(time.Millisecond))
	if resp.Error != "" {
		summary += ": " + resp.Error
	}
	return t.String() + "\n" + summary
}

// formatFigures renders stage metadata as sorted key=value pairs
func formatFigures(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := m[k]
		if f, ok := v.(float64); ok {
			v = fmt.Sprintf("%.2f", f)
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return strings.Join(parts, " ")
}

func renderStages(list []operations.OperationType) string {
	rows := make([][]string, len(list))
	for i, s := range list {
		rows[i] = []string{s.ID, s.Name, strings.Join(s.Dependencies, ", "), s.Description}
	}
	return newTable("ID", "Name", "Depends on", "Description").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

func renderAuditSummary(results []*services.AuditResult) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.Name, r.Verdict, fmt.Sprint(len(r.Issues)), fmt.Sprint(len(r.Warnings)), strings.Join(r.Written, ", ")}
	}
	return newTable("Audit", "Verdict", "Issues", "Warnings", "Written").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

func plainStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}
