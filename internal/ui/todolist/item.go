package todolist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/theme"
)

// TodoItem wraps a model.Todo so it can be used in a bubbles/list.
type TodoItem struct {
	Todo model.Todo
}

// FilterValue returns the string used for fuzzy filtering.
func (i TodoItem) FilterValue() string { return i.Todo.Name }

// Title returns the todo name for the list.
func (i TodoItem) Title() string { return i.Todo.Name }

// Description returns a short summary line for the list.
func (i TodoItem) Description() string {
	parts := []string{i.Todo.Priority}
	if i.Todo.DueDate != nil {
		parts = append(parts, i.Todo.DueDate.Format("Jan 02"))
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering todo lines.
type ItemDelegate struct {
	// Now supplies the clock used for overdue highlighting.
	Now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	todoItem, ok := item.(TodoItem)
	if !ok {
		return
	}
	todo := todoItem.Todo
	isSelected := index == m.Index()

	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	checkbox := "[ ]"
	if todo.Completed {
		checkbox = "[x]"
	}

	priBadge := theme.PriorityStyle(todo.Priority).Render(priorityLabel(todo.Priority))

	name := todo.Name
	if todo.Completed {
		name = theme.CompletedStyle.Render(name)
	}

	catBadge := ""
	if len(todo.Categories) > 0 {
		var names []string
		for _, cat := range todo.Categories {
			names = append(names, cat.Name)
		}
		// Show max 2 categories to avoid overflow
		if len(names) > 2 {
			names = names[:2]
			names = append(names, "…")
		}
		catBadge = lipgloss.NewStyle().
			Foreground(theme.ColorMagenta).
			Render(" @" + strings.Join(names, ",@"))
	}

	dueStr := ""
	if todo.DueDate != nil {
		due := todo.DueDate.Format("Jan 02")
		if todo.IsOverdue(now) {
			dueStr = theme.OverdueStyle.Render(" " + due + " OVERDUE")
		} else {
			dueStr = lipgloss.NewStyle().
				Foreground(theme.ColorGray).
				Render(" " + due)
		}
	}

	line := fmt.Sprintf("%s %s %s%s%s", checkbox, priBadge, name, catBadge, dueStr)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityMedium:
		return " !!"
	case model.PriorityLow:
		return "  !"
	default:
		return "  ?"
	}
}
