// Package help renders the full keyboard reference as an overlay.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/keys"
	"github.com/taskdeck/taskdeck/internal/theme"
)

// Model is the help overlay.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates the help overlay bound to the application key map.
func New(km *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	h.Width = width - 4
	return Model{keys: km, help: h, width: width, height: height}
}

// Update is a no-op; the root model handles the close keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the bordered key reference panel.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Keyboard Shortcuts")
	footer := theme.HelpStyle.Render("esc or ? to close")

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		m.help.View(m.keys),
		"",
		footer,
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(body)
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
