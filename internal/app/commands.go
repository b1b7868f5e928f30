package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/model"
)

// opTimeout bounds every user-triggered API call.
const opTimeout = 15 * time.Second

// actionDoneMsg reports the outcome of a controller mutation. The fresh
// list state already lives in the controller on success.
type actionDoneMsg struct {
	err error
}

// loginDoneMsg reports the outcome of a login or registration attempt.
type loginDoneMsg struct {
	user model.User
	err  error
}

// loggedOutMsg reports that the local session is gone.
type loggedOutMsg struct {
	err error
}

// statsLoadedMsg carries the server-side statistics for the stats view.
type statsLoadedMsg struct {
	stats model.Stats
	err   error
}

// prefsSavedMsg reports a preference write. Failures are non-fatal.
type prefsSavedMsg struct {
	err error
}

// initialLoadMsg carries the restored filter after the first fetch.
type initialLoadMsg struct {
	filter api.TodoFilter
	err    error
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// initialLoadCmd restores the saved filter, applies it, and performs the
// first fetch.
func (m Model) initialLoadCmd() tea.Cmd {
	ctrl := m.ctrl
	local := m.local
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		filter := api.TodoFilter{}
		if local != nil {
			if saved, ok, err := local.LastFilter(ctx); err == nil && ok {
				filter = saved
			}
		}

		if err := ctrl.SetFilter(ctx, filter); err != nil {
			return initialLoadMsg{err: err}
		}
		return initialLoadMsg{filter: filter}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m Model) setFilterCmd(filter api.TodoFilter) tea.Cmd {
	ctrl := m.ctrl
	local := m.local
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		if err := ctrl.SetFilter(ctx, filter); err != nil {
			return actionDoneMsg{err: err}
		}
		if local != nil {
			_ = local.SetLastFilter(ctx, filter)
		}
		return actionDoneMsg{}
	}
}

func (m Model) createTodoCmd(input api.CreateTodoInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		_, err := ctrl.Add(ctx, input)
		return actionDoneMsg{err: err}
	}
}

func (m Model) updateTodoCmd(id string, input api.UpdateTodoInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		_, err := ctrl.Update(ctx, id, input)
		return actionDoneMsg{err: err}
	}
}

func (m Model) toggleTodoCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		_, err := ctrl.Toggle(ctx, id)
		return actionDoneMsg{err: err}
	}
}

func (m Model) deleteTodoCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{err: ctrl.Remove(ctx, id)}
	}
}

func (m Model) moveTodoCmd(from, to int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{err: ctrl.Move(ctx, from, to)}
	}
}

func (m Model) clearCompletedCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{err: ctrl.ClearCompleted(ctx)}
	}
}

func (m Model) createCategoryCmd(input api.CreateCategoryInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		_, err := ctrl.AddCategory(ctx, input)
		return actionDoneMsg{err: err}
	}
}

func (m Model) updateCategoryCmd(id string, input api.UpdateCategoryInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		_, err := ctrl.UpdateCategory(ctx, id, input)
		return actionDoneMsg{err: err}
	}
}

func (m Model) deleteCategoryCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{err: ctrl.RemoveCategory(ctx, id)}
	}
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	mgr := m.authMgr
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		user, err := mgr.Login(ctx, email, password)
		return loginDoneMsg{user: user, err: err}
	}
}

func (m Model) registerCmd(input auth.RegisterInput) tea.Cmd {
	mgr := m.authMgr
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		user, err := mgr.Register(ctx, input)
		return loginDoneMsg{user: user, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	mgr := m.authMgr
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return loggedOutMsg{err: mgr.Logout(ctx)}
	}
}

func (m Model) loadStatsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		stats, err := ctrl.ServerStats(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m Model) saveDarkModeCmd(dark bool) tea.Cmd {
	local := m.local
	if local == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return prefsSavedMsg{err: local.SetDarkMode(ctx, dark)}
	}
}
