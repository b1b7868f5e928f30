// Package authform implements the login and registration forms shown
// before a session exists.
package authform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/theme"
)

// Mode selects which form is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// LoginMsg is dispatched when the login form is submitted.
type LoginMsg struct {
	Email    string
	Password string
}

// RegisterMsg is dispatched when the registration form is submitted.
type RegisterMsg struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// SwitchModeMsg is dispatched when the user flips between login and
// registration.
type SwitchModeMsg struct {
	Mode Mode
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email           string
	username        string
	password        string
	passwordConfirm string
	firstName       string
	lastName        string
}

// Model is the Bubble Tea model for the authentication forms.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	mode    Mode
	errText string
	width   int
	height  int
}

// New creates an auth form model starting in login mode.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form for the given mode.
func (m *Model) Start(mode Mode) tea.Cmd {
	m.mode = mode
	m.errText = ""
	m.fb.password = ""
	m.fb.passwordConfirm = ""
	if mode == ModeLogin {
		m.form = m.buildLoginForm()
	} else {
		m.form = m.buildRegisterForm()
	}
	return m.form.Init()
}

// Mode returns the active form mode.
func (m Model) Mode() Mode {
	return m.mode
}

// SetError displays a server-side failure above the form. The form is
// restarted so the user can correct and resubmit.
func (m *Model) SetError(text string) tea.Cmd {
	cmd := m.Start(m.mode)
	m.errText = text
	return cmd
}

// Update handles messages for the auth forms.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "tab" && m.formIdle() {
		next := ModeRegister
		if m.mode == ModeRegister {
			next = ModeLogin
		}
		return m, func() tea.Msg { return SwitchModeMsg{Mode: next} }
	}

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

	return m, cmd
}

// formIdle reports whether no field currently consumes the tab key.
func (m Model) formIdle() bool {
	return m.form == nil || m.form.State != huh.StateNormal
}

// View renders the active auth form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Sign In"
	hint := "tab after submit: create an account"
	if m.mode == ModeRegister {
		titleText = "Create Account"
		hint = "tab after submit: back to sign in"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render(titleText)}
	if m.errText != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errText))
	}
	parts = append(parts, m.form.View(), theme.HelpStyle.Render(hint))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(theme.BorderStyle.Padding(1, 2).Render(content))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildRegisterForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("First Name").
				Value(&m.fb.firstName),
			huh.NewInput().
				Title("Last Name").
				Value(&m.fb.lastName),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.passwordConfirm).
				Validate(validateRequired("Confirm Password")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) handleSubmit() tea.Cmd {
	if m.mode == ModeLogin {
		msg := LoginMsg{Email: m.fb.email, Password: m.fb.password}
		return func() tea.Msg { return msg }
	}
	msg := RegisterMsg{
		Email:           m.fb.email,
		Username:        m.fb.username,
		Password:        m.fb.password,
		PasswordConfirm: m.fb.passwordConfirm,
		FirstName:       m.fb.firstName,
		LastName:        m.fb.lastName,
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width / 2
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
