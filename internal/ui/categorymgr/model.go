// Package categorymgr implements the category management view: a list of
// categories with create, rename and delete actions.
package categorymgr

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/theme"
)

// CreateMsg is dispatched when a new category is submitted.
type CreateMsg struct {
	Name  string
	Color string
}

// UpdateMsg is dispatched when an edited category is submitted.
type UpdateMsg struct {
	CategoryID string
	Name       string
	Color      string
}

// DeleteMsg is dispatched when a category is deleted.
type DeleteMsg struct {
	CategoryID string
}

// CloseMsg is dispatched when the user leaves the view.
type CloseMsg struct{}

// categoryItem wraps a model.Category for the bubbles list.
type categoryItem struct {
	cat model.Category
}

func (i categoryItem) FilterValue() string { return i.cat.Name }

// itemDelegate renders one category line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(categoryItem)
	if !ok {
		return
	}

	label := theme.CategoryStyle(ci.cat).Render(ci.cat.Name)
	count := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(fmt.Sprintf(" %d todos", ci.cat.TodoCount))

	line := label + count
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name  string
	color string
}

// Model is the category management view.
type Model struct {
	list    list.Model
	form    *huh.Form
	fb      *formBindings
	editing bool
	editID  string
	width   int
	height  int
}

// New creates the category manager.
func New(width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, width, height-2)
	l.Title = "Categories"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetCategories replaces the displayed categories.
func (m *Model) SetCategories(categories []model.Category) tea.Cmd {
	items := make([]list.Item, len(categories))
	for i, cat := range categories {
		items[i] = categoryItem{cat: cat}
	}
	return m.list.SetItems(items)
}

// Editing reports whether the create/edit form is open.
func (m Model) Editing() bool {
	return m.form != nil
}

// Update handles messages for the category manager.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("a", "n"))):
		m.editing = false
		m.editID = ""
		m.fb.name = ""
		m.fb.color = ""
		m.form = m.buildForm()
		return m, m.form.Init()

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("e", "enter"))):
		item, ok := m.list.SelectedItem().(categoryItem)
		if !ok {
			return m, nil
		}
		m.editing = true
		m.editID = item.cat.ID
		m.fb.name = item.cat.Name
		m.fb.color = item.cat.Color
		m.form = m.buildForm()
		return m, m.form.Init()

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("d"))):
		item, ok := m.list.SelectedItem().(categoryItem)
		if !ok {
			return m, nil
		}
		id := item.cat.ID
		return m, func() tea.Msg { return DeleteMsg{CategoryID: id} }

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("esc", "q"))):
		return m, func() tea.Msg { return CloseMsg{} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		name := m.fb.name
		color := m.fb.color
		editing := m.editing
		editID := m.editID
		m.form = nil
		if editing {
			return m, func() tea.Msg {
				return UpdateMsg{CategoryID: editID, Name: name, Color: color}
			}
		}
		return m, func() tea.Msg {
			return CreateMsg{Name: name, Color: color}
		}
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, nil
	}

	return m, cmd
}

// View renders the category manager.
func (m Model) View() string {
	if m.form != nil {
		title := "New Category"
		if m.editing {
			title = "Edit Category"
		}
		titleStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1)
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(titleStyle.Render(title) + "\n" + m.form.View())
	}

	hints := theme.HelpStyle.Render("a: add · e: edit · d: delete · esc: back")
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), hints)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("Name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Color").
				Placeholder("#RRGGBB (optional)").
				Value(&m.fb.color),
		),
	).WithWidth(60)
}
