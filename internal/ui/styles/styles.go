// Package styles defines the terminal styling used for console output.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	Claude = lipgloss.Color("208") // Orange
	Cost   = lipgloss.Color("42")  // Green

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
)

// Title styles batch headings.
func Title(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().Bold(true).Foreground(Primary)
}

// Border styles table borders.
func Border(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().Foreground(Subtle)
}

// TableHeader styles the header row of a table.
func TableHeader(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().Bold(true).Foreground(Secondary).Padding(0, 1)
}

// Cell styles a regular table cell.
func Cell(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().Foreground(TextPrimary).Padding(0, 1)
}

// MetricCell styles the metric name column, colored by metric.
func MetricCell(r *lipgloss.Renderer, metric string) lipgloss.Style {
	color := TextSecondary
	switch metric {
	case "TokenUsage":
		color = Claude
	case "CostUsage":
		color = Cost
	}
	return r.NewStyle().Bold(true).Foreground(color).Padding(0, 1)
}
