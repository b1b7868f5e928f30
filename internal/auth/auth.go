// Package auth implements account operations against the remote API:
// registration, login, logout, profile management and password changes.
// Successful logins persist the issued token pair and user identity into
// the injected session store; every later request picks them up from
// there.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
)

// RegisterInput holds the fields of a new account request.
type RegisterInput struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

// UpdateProfileInput is a partial profile update.
type UpdateProfileInput struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Manager performs the account lifecycle against the API and keeps the
// session store in sync with the server's answers.
type Manager struct {
	client  *api.Client
	session *session.Store
	logger  *slog.Logger
}

// NewManager wires a Manager over the given client and session store.
func NewManager(client *api.Client, sess *session.Store) *Manager {
	return &Manager{client: client, session: sess, logger: slog.Default()}
}

// Register creates a new account and signs the user in with the returned
// token pair.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (model.User, error) {
	if err := validateEmail(input.Email); err != nil {
		return model.User{}, err
	}
	if err := validateUsername(input.Username); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(input.Password, input.PasswordConfirm); err != nil {
		return model.User{}, err
	}

	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	var resp model.Session
	if err := m.client.Post(ctx, "/auth/register/", input, &resp); err != nil {
		return model.User{}, err
	}
	if err := m.session.SetSession(resp); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Login authenticates with email and password and persists the session.
func (m *Manager) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := validateEmail(email); err != nil {
		return model.User{}, err
	}
	if password == "" {
		return model.User{}, &api.ValidationError{Field: "password", Message: "password is required"}
	}

	body := map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	var resp model.Session
	if err := m.client.Post(ctx, "/auth/login/", body, &resp); err != nil {
		return model.User{}, err
	}
	if err := m.session.SetSession(resp); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Logout revokes the refresh token server-side on a best-effort basis and
// always clears the local session, so the user ends up signed out even
// when the server is unreachable.
func (m *Manager) Logout(ctx context.Context) error {
	if refresh := m.session.RefreshToken(); refresh != "" {
		body := map[string]string{"refresh": refresh}
		if err := m.client.Post(ctx, "/auth/logout/", body, nil); err != nil {
			m.logger.Warn("server-side logout failed", "error", err)
		}
	}
	return m.session.Clear()
}

// Profile fetches the current user from the server and refreshes the
// stored copy.
func (m *Manager) Profile(ctx context.Context) (model.User, error) {
	var user model.User
	if err := m.client.Get(ctx, "/auth/profile/", nil, &user); err != nil {
		return model.User{}, err
	}
	if err := m.session.SetUser(user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a partial update to the account and persists the
// server's copy of the user.
func (m *Manager) UpdateProfile(ctx context.Context, input UpdateProfileInput) (model.User, error) {
	if input.Username != nil {
		if err := validateUsername(*input.Username); err != nil {
			return model.User{}, err
		}
	}

	var user model.User
	if err := m.client.Put(ctx, "/auth/profile/", input, &user); err != nil {
		return model.User{}, err
	}
	if err := m.session.SetUser(user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// ChangePassword rotates the account password. The session stays valid;
// the server keeps already-issued tokens alive.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if oldPassword == "" {
		return &api.ValidationError{Field: "old_password", Message: "current password is required"}
	}
	if err := validatePassword(newPassword, confirm); err != nil {
		return err
	}

	body := map[string]string{
		"old_password":     oldPassword,
		"new_password":     newPassword,
		"confirm_password": confirm,
	}
	return m.client.Post(ctx, "/auth/change-password/", body, nil)
}
