// Package todolist renders the main todo list with search, filter state
// and selection. Mutations are not performed here; key presses bubble up
// to the application as messages.
package todolist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/controller"
	"github.com/taskdeck/taskdeck/internal/keys"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/theme"
)

// SelectedTodoMsg is sent when a user opens a todo.
type SelectedTodoMsg struct {
	TodoID string
}

// SearchMsg is sent when a search query is submitted or cleared.
type SearchMsg struct {
	Query string
}

// Model is the main todo list view component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	searchMode  bool
	searchInput textinput.Model
	summary     controller.Summary
	filter      api.TodoFilter
	width       int
	height      int
}

// New creates a new todo list model.
func New(k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{Now: time.Now}
	l := list.New([]list.Item{}, delegate, width, height-3)
	l.Title = "Todos"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search todos..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetTodos replaces the displayed items, keeping the cursor on the same
// todo when it survives the update.
func (m *Model) SetTodos(todos []model.Todo) tea.Cmd {
	selectedID := ""
	if todo, ok := m.Selected(); ok {
		selectedID = todo.ID
	}

	items := make([]list.Item, len(todos))
	newIndex := 0
	for i, todo := range todos {
		items[i] = TodoItem{Todo: todo}
		if todo.ID == selectedID {
			newIndex = i
		}
	}

	cmd := m.list.SetItems(items)
	m.list.Select(newIndex)
	return cmd
}

// SetSummary updates the counts shown in the status line.
func (m *Model) SetSummary(s controller.Summary) {
	m.summary = s
}

// SetFilter records the active filter for the status line and empty state.
func (m *Model) SetFilter(f api.TodoFilter) {
	m.filter = f
}

// Selected returns the todo under the cursor.
func (m Model) Selected() (model.Todo, bool) {
	item, ok := m.list.SelectedItem().(TodoItem)
	if !ok {
		return model.Todo{}, false
	}
	return item.Todo, true
}

// SelectedIndex returns the cursor position.
func (m Model) SelectedIndex() int {
	return m.list.Index()
}

// Searching reports whether the search input currently has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the todo list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(keyMsg)
		}
		if keyMsg.String() == "/" {
			m.searchMode = true
			m.searchInput.Reset()
			return m, m.searchInput.Focus()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := m.searchInput.Value()
		return m, func() tea.Msg {
			return SearchMsg{Query: query}
		}

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		return m, func() tea.Msg {
			return SearchMsg{}
		}
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// View renders the todo list view.
func (m Model) View() string {
	var header string
	if m.searchMode {
		header = lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
	} else {
		header = m.statusLine()
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.renderEmptyState())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View())
}

// statusLine shows the derived counts and active filter hints.
func (m Model) statusLine() string {
	s := fmt.Sprintf("%d todos · %d active · %d done",
		m.summary.Total, m.summary.Active, m.summary.Completed)
	if m.summary.Overdue > 0 {
		s += theme.OverdueStyle.Render(fmt.Sprintf(" · %d overdue", m.summary.Overdue))
	}
	if !m.filter.IsZero() {
		s += theme.HelpStyle.Render(" · filtered")
	}
	return theme.StatusBarStyle.Width(m.width).Render(s)
}

// renderEmptyState shows guidance text when no todos are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 3).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if !m.filter.IsZero() {
		return style.Render("No matching todos.\nPress 0 to clear filters.")
	}
	return style.Render("No todos yet.\n\nPress 'a' to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
	m.searchInput.Width = width - 4
}
