package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/theme"
)

// renderStats draws the server-side statistics panel.
func (m Model) renderStats() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(16)

	s := m.stats
	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Total", fmt.Sprintf("%d", s.TotalTodos))
	row("Completed", fmt.Sprintf("%d", s.CompletedTodos))
	row("Pending", fmt.Sprintf("%d", s.PendingTodos))
	row("Completion", fmt.Sprintf("%.0f%%", s.CompletionRate))
	if s.OverdueTodos > 0 {
		row("Overdue", theme.OverdueStyle.Render(fmt.Sprintf("%d", s.OverdueTodos)))
	} else {
		row("Overdue", "0")
	}
	row("Done today", fmt.Sprintf("%d", s.TodayCompleted))
	row("Done this week", fmt.Sprintf("%d", s.WeekCompleted))

	if len(s.CategoriesStats) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("By Category"))
		b.WriteString("\n")

		names := make([]string, 0, len(s.CategoriesStats))
		for name := range s.CategoriesStats {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cs := s.CategoriesStats[name]
			row(name, fmt.Sprintf("%d done / %d total", cs.Completed, cs.Total))
		}
	}

	return theme.DetailPanelStyle.
		Width(m.layout.ContentWidth() - 4).
		Render(b.String())
}

// renderConfirmClear draws the clear-completed confirmation prompt.
func (m Model) renderConfirmClear() string {
	prompt := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Render("Delete all completed todos?"),
		"",
		theme.HelpStyle.Render("y: delete · any other key: cancel"),
	)

	return lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Render(theme.BorderStyle.Padding(1, 3).Render(prompt))
}
