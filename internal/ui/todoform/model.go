// Package todoform implements the create/edit form for todos.
package todoform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/theme"
)

// SubmitMsg is dispatched when the form completes. For edits, TodoID names
// the todo being changed; for creates it is empty.
type SubmitMsg struct {
	TodoID      string
	Name        string
	Description string
	Priority    string
	DueDate     *time.Time
	CategoryIDs []string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// CreateInput converts the submitted values into a create request.
func (msg SubmitMsg) CreateInput() api.CreateTodoInput {
	return api.CreateTodoInput{
		Name:        msg.Name,
		Description: msg.Description,
		Priority:    msg.Priority,
		DueDate:     msg.DueDate,
		CategoryIDs: msg.CategoryIDs,
	}
}

// UpdateInput converts the submitted values into a full update request.
func (msg SubmitMsg) UpdateInput() api.UpdateTodoInput {
	name := msg.Name
	description := msg.Description
	priority := msg.Priority
	return api.UpdateTodoInput{
		Name:        &name,
		Description: &description,
		Priority:    &priority,
		DueDate:     msg.DueDate,
		CategoryIDs: msg.CategoryIDs,
	}
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name        string
	description string
	priority    string
	dueDate     string
	categoryIDs []string
}

// Model is the Bubble Tea model for the todo create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	editID     string
	categories []model.Category
	width      int
	height     int
}

// New creates a new todo form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium},
		width:  width,
		height: height,
	}
}

// SetCategories sets the available categories for the multi-select.
func (m *Model) SetCategories(categories []model.Category) {
	m.categories = categories
}

// StartCreate initializes the form for creating a new todo.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.fb.name = ""
	m.fb.description = ""
	m.fb.priority = model.PriorityMedium
	m.fb.dueDate = ""
	m.fb.categoryIDs = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing todo.
func (m *Model) StartEdit(todo model.Todo) tea.Cmd {
	m.editMode = true
	m.editID = todo.ID
	m.fb.name = todo.Name
	m.fb.description = todo.Description
	m.fb.priority = todo.Priority
	if todo.DueDate != nil {
		m.fb.dueDate = todo.DueDate.Format("2006-01-02")
	} else {
		m.fb.dueDate = ""
	}
	m.fb.categoryIDs = nil
	for _, cat := range todo.Categories {
		m.fb.categoryIDs = append(m.fb.categoryIDs, cat.ID)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the todo form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the todo form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Todo"
	if m.editMode {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What needs to be done?").
			Value(&m.fb.name).
			Validate(validateRequired("Name")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption("High", model.PriorityHigh),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	}
	if catField := m.categoryField(); catField != nil {
		fields = append(fields, catField)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) categoryField() huh.Field {
	if len(m.categories) == 0 {
		return nil
	}
	opts := make([]huh.Option[string], len(m.categories))
	for i, cat := range m.categories {
		opts[i] = huh.NewOption(cat.Name, cat.ID)
	}
	return huh.NewMultiSelect[string]().
		Title("Categories").
		Options(opts...).
		Value(&m.fb.categoryIDs)
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{
		TodoID:      m.editID,
		Name:        m.fb.name,
		Description: m.fb.description,
		Priority:    m.fb.priority,
		CategoryIDs: m.fb.categoryIDs,
	}
	if !m.editMode {
		msg.TodoID = ""
	}

	if m.fb.dueDate != "" {
		t, err := time.Parse("2006-01-02", m.fb.dueDate)
		if err == nil {
			msg.DueDate = &t
		}
	}

	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
