// Package app wires the Bubble Tea root model: view routing, command
// dispatch and session state.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/controller"
	"github.com/taskdeck/taskdeck/internal/keys"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/store"
	appsync "github.com/taskdeck/taskdeck/internal/sync"
	"github.com/taskdeck/taskdeck/internal/theme"
	"github.com/taskdeck/taskdeck/internal/ui"
	"github.com/taskdeck/taskdeck/internal/ui/authform"
	"github.com/taskdeck/taskdeck/internal/ui/categorymgr"
	helpview "github.com/taskdeck/taskdeck/internal/ui/help"
	"github.com/taskdeck/taskdeck/internal/ui/todoform"
	"github.com/taskdeck/taskdeck/internal/ui/todolist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewAuth ViewState = iota
	ViewList
	ViewTodoCreate
	ViewTodoEdit
	ViewCategories
	ViewStats
	ViewHelp
	ViewConfirmClear
)

// priorityCycle is the rotation order for the priority filter key.
var priorityCycle = []string{"", model.PriorityHigh, model.PriorityMedium, model.PriorityLow}

// Options bundles the dependencies of the root model.
type Options struct {
	Session    *session.Store
	Auth       *auth.Manager
	Controller *controller.Controller
	Local      *store.LocalStore
	Poller     *appsync.Poller
	DarkMode   bool
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and dispatch to the controller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	logger       *slog.Logger

	session *session.Store
	authMgr *auth.Manager
	ctrl    *controller.Controller
	local   *store.LocalStore
	poller  *appsync.Poller

	authView     authform.Model
	todoList     todolist.Model
	todoForm     todoform.Model
	categoryView categorymgr.Model
	helpView     helpview.Model

	stats         model.Stats
	darkMode      bool
	priorityIndex int
	busy          bool
	ready         bool
	errText       string

	// initCmd is prepared in New because Init runs on a copy and cannot
	// mutate view state.
	initCmd tea.Cmd
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	theme.SetDarkMode(opts.DarkMode)

	initialView := ViewAuth
	if opts.Session.IsAuthenticated() {
		initialView = ViewList
	}

	m := Model{
		currentView:  initialView,
		keys:         k,
		logger:       logger,
		session:      opts.Session,
		authMgr:      opts.Auth,
		ctrl:         opts.Controller,
		local:        opts.Local,
		poller:       opts.Poller,
		authView:     authform.New(80, 24),
		todoList:     todolist.New(k, 80, 24),
		todoForm:     todoform.New(80, 24),
		categoryView: categorymgr.New(80, 24),
		helpView:     helpview.New(k, 80, 24),
		darkMode:     opts.DarkMode,
	}

	if initialView == ViewList {
		m.initCmd = tea.Batch(m.initialLoadCmd(), m.poller.Start())
	} else {
		m.initCmd = m.authView.Start(authform.ModeLogin)
	}
	return m
}

// Init kicks off the entry view chosen at construction: the first fetch
// when a session exists, otherwise the login form.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.authView.SetSize(w, h)
		m.todoList.SetSize(w, h)
		m.todoForm.SetSize(w, h)
		m.categoryView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m.updateActiveView(msg)

	case initialLoadMsg:
		m.currentView = ViewList
		if msg.err != nil {
			return m.handleActionError(msg.err)
		}
		m.todoList.SetFilter(msg.filter)
		return m, m.syncFromController()

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m.handleActionError(msg.err)
		}
		m.errText = ""
		m.todoList.SetFilter(m.ctrl.Filter())
		return m, m.syncFromController()

	case appsync.ResultMsg:
		waitCmd := m.poller.WaitForNextResult()
		if msg.AuthError {
			m.logger.Warn("background refresh lost authentication")
			model, authCmd := m.toAuthView("Session expired. Please sign in again.")
			return model, tea.Batch(authCmd, waitCmd)
		}
		if msg.Error != nil {
			return m, waitCmd
		}
		return m, tea.Batch(m.syncFromController(), waitCmd)

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.authView.SetError(errorText(msg.err))
		}
		m.logger.Info("signed in", "user", msg.user.Username)
		m.errText = ""
		m.currentView = ViewList
		return m, tea.Batch(m.initialLoadCmd(), m.poller.Start())

	case loggedOutMsg:
		m.poller.Stop()
		model, cmd := m.toAuthView("")
		return model, cmd

	case statsLoadedMsg:
		if msg.err != nil {
			return m.handleActionError(msg.err)
		}
		m.stats = msg.stats
		m.currentView = ViewStats
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving preference failed", "error", msg.err)
		}
		return m, nil

	case authform.LoginMsg:
		m.busy = true
		return m, m.loginCmd(msg.Email, msg.Password)

	case authform.RegisterMsg:
		m.busy = true
		return m, m.registerCmd(auth.RegisterInput{
			Email:           msg.Email,
			Username:        msg.Username,
			Password:        msg.Password,
			PasswordConfirm: msg.PasswordConfirm,
			FirstName:       msg.FirstName,
			LastName:        msg.LastName,
		})

	case authform.SwitchModeMsg:
		return m, m.authView.Start(msg.Mode)

	case todolist.SearchMsg:
		filter := m.ctrl.Filter()
		filter.Search = msg.Query
		return m, m.setFilterCmd(filter)

	case todoform.SubmitMsg:
		m.currentView = ViewList
		m.busy = true
		if msg.TodoID == "" {
			return m, m.createTodoCmd(msg.CreateInput())
		}
		return m, m.updateTodoCmd(msg.TodoID, msg.UpdateInput())

	case todoform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case categorymgr.CreateMsg:
		m.busy = true
		return m, m.createCategoryCmd(api.CreateCategoryInput{Name: msg.Name, Color: msg.Color})

	case categorymgr.UpdateMsg:
		m.busy = true
		name := msg.Name
		color := msg.Color
		return m, m.updateCategoryCmd(msg.CategoryID, api.UpdateCategoryInput{Name: &name, Color: &color})

	case categorymgr.DeleteMsg:
		m.busy = true
		return m, m.deleteCategoryCmd(msg.CategoryID)

	case categorymgr.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case tea.KeyMsg:
		if handled, model, cmd := m.handleGlobalKeys(msg); handled {
			return model, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that route between views or dispatch
// mutations. Returns handled=false when the active view should see the
// key instead.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return true, m, tea.Quit
	}

	// Text-entry views own the keyboard.
	if m.currentView == ViewAuth || m.currentView == ViewTodoCreate ||
		m.currentView == ViewTodoEdit || m.todoList.Searching() ||
		(m.currentView == ViewCategories && m.categoryView.Editing()) {
		return false, m, nil
	}

	switch m.currentView {
	case ViewHelp, ViewStats:
		switch msg.String() {
		case "esc", "q", "?":
			m.currentView = m.previousView
			return true, m, nil
		}
		return true, m, nil

	case ViewConfirmClear:
		switch msg.String() {
		case "y", "Y":
			m.currentView = ViewList
			m.busy = true
			return true, m, m.clearCompletedCmd()
		default:
			m.currentView = ViewList
			return true, m, nil
		}
	}

	if m.currentView != ViewList {
		return false, m, nil
	}
	return m.handleListKeys(msg)
}

// handleListKeys processes the main list's action keys.
func (m Model) handleListKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		m.poller.Stop()
		return true, m, tea.Quit

	case key.Matches(msg, k.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, k.Refresh):
		m.poller.Trigger()
		return true, m, nil

	case key.Matches(msg, k.DarkMode):
		m.darkMode = !m.darkMode
		theme.SetDarkMode(m.darkMode)
		return true, m, m.saveDarkModeCmd(m.darkMode)

	case key.Matches(msg, k.Logout):
		return true, m, m.logoutCmd()

	case key.Matches(msg, k.Stats):
		return true, m, m.loadStatsCmd()

	case key.Matches(msg, k.Categories):
		m.previousView = m.currentView
		m.currentView = ViewCategories
		cmd := m.categoryView.SetCategories(m.ctrl.Categories())
		return true, m, cmd

	case key.Matches(msg, k.Add):
		m.previousView = m.currentView
		m.currentView = ViewTodoCreate
		m.todoForm.SetCategories(m.ctrl.Categories())
		return true, m, m.todoForm.StartCreate()

	case key.Matches(msg, k.Edit):
		todo, ok := m.todoList.Selected()
		if !ok {
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewTodoEdit
		m.todoForm.SetCategories(m.ctrl.Categories())
		return true, m, m.todoForm.StartEdit(todo)

	case key.Matches(msg, k.Toggle):
		if m.busy {
			return true, m, nil
		}
		todo, ok := m.todoList.Selected()
		if !ok {
			return true, m, nil
		}
		m.busy = true
		return true, m, m.toggleTodoCmd(todo.ID)

	case key.Matches(msg, k.Delete):
		if m.busy {
			return true, m, nil
		}
		todo, ok := m.todoList.Selected()
		if !ok {
			return true, m, nil
		}
		m.busy = true
		return true, m, m.deleteTodoCmd(todo.ID)

	case key.Matches(msg, k.MoveUp):
		if m.busy {
			return true, m, nil
		}
		idx := m.todoList.SelectedIndex()
		if idx <= 0 {
			return true, m, nil
		}
		m.busy = true
		return true, m, m.moveTodoCmd(idx, idx-1)

	case key.Matches(msg, k.MoveDown):
		if m.busy {
			return true, m, nil
		}
		idx := m.todoList.SelectedIndex()
		if idx < 0 || idx >= len(m.ctrl.Todos())-1 {
			return true, m, nil
		}
		m.busy = true
		return true, m, m.moveTodoCmd(idx, idx+1)

	case key.Matches(msg, k.ClearCompleted):
		m.previousView = m.currentView
		m.currentView = ViewConfirmClear
		return true, m, nil

	case key.Matches(msg, k.FilterActive):
		filter := m.ctrl.Filter()
		active := false
		filter.Completed = &active
		return true, m, m.setFilterCmd(filter)

	case key.Matches(msg, k.FilterCompleted):
		filter := m.ctrl.Filter()
		done := true
		filter.Completed = &done
		return true, m, m.setFilterCmd(filter)

	case key.Matches(msg, k.FilterAll):
		m.priorityIndex = 0
		return true, m, m.setFilterCmd(api.TodoFilter{})

	case key.Matches(msg, k.CyclePriority):
		m.priorityIndex = (m.priorityIndex + 1) % len(priorityCycle)
		filter := m.ctrl.Filter()
		filter.Priority = priorityCycle[m.priorityIndex]
		return true, m, m.setFilterCmd(filter)
	}

	return false, m, nil
}

// handleActionError routes failures: auth errors return to the login
// form, the rest become a transient banner.
func (m Model) handleActionError(err error) (tea.Model, tea.Cmd) {
	m.busy = false
	if api.IsAuthError(err) {
		m.poller.Stop()
		model, cmd := m.toAuthView("Session expired. Please sign in again.")
		return model, cmd
	}
	m.logger.Error("action failed", "error", err)
	m.errText = errorText(err)
	// Reorder rollbacks leave stale items; re-render from the controller.
	return m, m.syncFromController()
}

func (m Model) toAuthView(notice string) (Model, tea.Cmd) {
	m.currentView = ViewAuth
	m.errText = ""
	var cmd tea.Cmd
	if notice != "" {
		cmd = m.authView.SetError(notice)
	} else {
		cmd = m.authView.Start(authform.ModeLogin)
	}
	return m, cmd
}

// syncFromController re-renders the list state from the controller.
func (m *Model) syncFromController() tea.Cmd {
	cmd := m.todoList.SetTodos(m.ctrl.Todos())
	m.todoList.SetSummary(m.ctrl.Summary())
	m.todoList.SetFilter(m.ctrl.Filter())
	return cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAuth:
		m.authView, cmd = m.authView.Update(msg)
	case ViewList:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewTodoCreate, ViewTodoEdit:
		m.todoForm, cmd = m.todoForm.Update(msg)
	case ViewCategories:
		m.categoryView, cmd = m.categoryView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerTitle() string {
	title := "TaskDeck"
	if user := m.session.CurrentUser(); user != nil && m.currentView != ViewAuth {
		title = fmt.Sprintf("TaskDeck · %s", user.Username)
	}
	return title
}

func (m Model) headerStatus() string {
	if m.currentView == ViewAuth {
		return ""
	}
	if m.busy {
		return "working…"
	}
	switch m.poller.Status().State {
	case appsync.StateRunning:
		return "syncing"
	case appsync.StateError:
		return "offline"
	default:
		return "idle"
	}
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewAuth:
		return m.authView.View()
	case ViewList:
		return m.todoList.View()
	case ViewTodoCreate, ViewTodoEdit:
		return m.todoForm.View()
	case ViewCategories:
		return m.categoryView.View()
	case ViewStats:
		return m.renderStats()
	case ViewHelp:
		return m.helpView.View()
	case ViewConfirmClear:
		return m.renderConfirmClear()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.errText != "" && m.currentView == ViewList {
		return m.errText
	}

	switch m.currentView {
	case ViewAuth:
		return "enter submit | tab switch login/register | ctrl+c quit"
	case ViewTodoCreate, ViewTodoEdit:
		return "enter submit | esc cancel"
	case ViewCategories:
		return "a add | e edit | d delete | esc back"
	case ViewStats:
		return "esc back"
	case ViewHelp:
		return "? close help | esc back"
	case ViewConfirmClear:
		return "y confirm | any other key cancel"
	default:
		return "a add | space toggle | e edit | d delete | / search | s stats | ? help | q quit"
	}
}

// errorText produces the user-facing message for a failed operation.
func errorText(err error) string {
	var vErr *api.ValidationError
	var httpErr *api.HTTPError
	var reqErr *api.RequestError
	switch {
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &reqErr):
		return "Cannot reach the server. Check your connection."
	default:
		return err.Error()
	}
}
