package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/testutil"
)

func strPtr(s string) *string { return &s }

// newManager builds a manager over an empty session against the fake API.
func newManager(t *testing.T, f *testutil.FakeAPI) (*auth.Manager, *session.Store) {
	t.Helper()
	sess := session.New(keyring.NewArrayKeyring(nil))
	client := api.NewClient(f.URL(), sess, 5*time.Second)
	return auth.NewManager(client, sess), sess
}

func TestLoginPersistsSession(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)

	user, err := m.Login(context.Background(), "ada@example.com", f.Password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Username != "ada" {
		t.Errorf("user = %+v", user)
	}
	if !sess.IsAuthenticated() {
		t.Fatal("session not authenticated after login")
	}
	if sess.AccessToken() != f.AccessToken {
		t.Errorf("stored access token %q, server issued %q", sess.AccessToken(), f.AccessToken)
	}
	if sess.RefreshToken() != f.RefreshToken {
		t.Errorf("stored refresh token %q, server issued %q", sess.RefreshToken(), f.RefreshToken)
	}
	if got := sess.CurrentUser(); got == nil || got.Email != "ada@example.com" {
		t.Errorf("stored user = %+v", got)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)

	_, err := m.Login(context.Background(), "ada@example.com", "wrong-password")

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
	if sess.IsAuthenticated() {
		t.Error("session authenticated after rejected login")
	}
	// A login 401 is a credentials problem, never a refresh trigger.
	if got := f.CallCount("POST", "/auth/token/refresh/"); got != 0 {
		t.Errorf("refresh endpoint hit %d times, want 0", got)
	}
}

func TestLoginValidatesLocally(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, _ := newManager(t, f)
	ctx := context.Background()

	tests := []struct {
		name      string
		email     string
		password  string
		wantField string
	}{
		{"missing email", "", "hunter2hunter2", "email"},
		{"malformed email", "not-an-email", "hunter2hunter2", "email"},
		{"missing tld", "ada@example", "hunter2hunter2", "email"},
		{"empty password", "ada@example.com", "", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(ctx, tt.email, tt.password)
			var vErr *api.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.wantField {
				t.Fatalf("got %v, want %s ValidationError", err, tt.wantField)
			}
		})
	}

	if got := f.CallCount("POST", "/auth/login/"); got != 0 {
		t.Errorf("server saw %d login requests, want 0", got)
	}
}

func TestRegisterValidatesLocally(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, _ := newManager(t, f)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     auth.RegisterInput
		wantField string
	}{
		{
			"bad email",
			auth.RegisterInput{Email: "nope", Username: "grace", Password: "longenough", PasswordConfirm: "longenough"},
			"email",
		},
		{
			"short username",
			auth.RegisterInput{Email: "g@example.com", Username: "ab", Password: "longenough", PasswordConfirm: "longenough"},
			"username",
		},
		{
			"short password",
			auth.RegisterInput{Email: "g@example.com", Username: "grace", Password: "short", PasswordConfirm: "short"},
			"password",
		},
		{
			"mismatched confirmation",
			auth.RegisterInput{Email: "g@example.com", Username: "grace", Password: "longenough", PasswordConfirm: "different1"},
			"password_confirm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Register(ctx, tt.input)
			var vErr *api.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.wantField {
				t.Fatalf("got %v, want %s ValidationError", err, tt.wantField)
			}
		})
	}

	if got := f.CallCount("POST", "/auth/register/"); got != 0 {
		t.Errorf("server saw %d register requests, want 0", got)
	}
}

func TestRegisterSignsIn(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)

	user, err := m.Register(context.Background(), auth.RegisterInput{
		Email:           "grace@example.com",
		Username:        "grace",
		Password:        "longenough",
		PasswordConfirm: "longenough",
		FirstName:       "Grace",
		LastName:        "Hopper",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "grace@example.com" || user.Username != "grace" {
		t.Errorf("user = %+v", user)
	}
	if !sess.IsAuthenticated() {
		t.Error("session not authenticated after registration")
	}
}

func TestLogoutAlwaysClearsSession(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)

	if _, err := m.Login(context.Background(), "ada@example.com", f.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Invalidate the refresh token server-side so the revoke call fails.
	f.RefreshToken = "rotated-elsewhere"

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Error("session still authenticated after logout")
	}
	if sess.AccessToken() != "" || sess.RefreshToken() != "" {
		t.Error("tokens survived logout")
	}
	if got := f.CallCount("POST", "/auth/logout/"); got != 1 {
		t.Errorf("logout endpoint hit %d times, want 1", got)
	}
}

func TestProfileRefreshesStoredUser(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)
	ctx := context.Background()

	if _, err := m.Login(ctx, "ada@example.com", f.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The account changes behind our back; Profile must pick it up.
	f.User.FirstName = "Augusta"

	user, err := m.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.FirstName != "Augusta" {
		t.Errorf("profile first name = %q", user.FirstName)
	}
	if got := sess.CurrentUser(); got == nil || got.FirstName != "Augusta" {
		t.Errorf("stored user not refreshed: %+v", got)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, sess := newManager(t, f)
	ctx := context.Background()

	if _, err := m.Login(ctx, "ada@example.com", f.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	user, err := m.UpdateProfile(ctx, auth.UpdateProfileInput{
		FirstName: strPtr("Augusta Ada"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.FirstName != "Augusta Ada" {
		t.Errorf("first name = %q", user.FirstName)
	}
	if got := sess.CurrentUser(); got == nil || got.FirstName != "Augusta Ada" {
		t.Errorf("stored user = %+v", got)
	}

	var vErr *api.ValidationError
	if _, err := m.UpdateProfile(ctx, auth.UpdateProfileInput{Username: strPtr("x")}); !errors.As(err, &vErr) {
		t.Errorf("short username accepted: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	m, _ := newManager(t, f)
	ctx := context.Background()

	if _, err := m.Login(ctx, "ada@example.com", f.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	err := m.ChangePassword(ctx, "wrong-old", "brandnewpass", "brandnewpass")
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("wrong old password: got %v, want HTTPError", err)
	}
	if got := httpErr.FieldError("old_password"); got == "" {
		t.Error("no field error for old_password")
	}

	if err := m.ChangePassword(ctx, "hunter2hunter2", "brandnewpass", "brandnewpass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// The new password must work for a fresh login.
	if _, err := m.Login(ctx, "ada@example.com", "brandnewpass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestChangePasswordWireBody(t *testing.T) {
	// The server declares all three fields required, the way the real
	// serializer does.
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/change-password/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body = nil
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, field := range []string{"old_password", "new_password", "confirm_password"} {
			if body[field] == "" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string][]string{field: {"This field is required."}})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "password changed"})
	}))
	defer srv.Close()

	sess := session.New(keyring.NewArrayKeyring(nil))
	m := auth.NewManager(api.NewClient(srv.URL, sess, 5*time.Second), sess)

	if err := m.ChangePassword(context.Background(), "oldpassword", "newpassword1", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword: %v (body sent: %v)", err, body)
	}
	if body["confirm_password"] != "newpassword1" {
		t.Errorf("confirm_password on the wire = %q, want the confirmation value", body["confirm_password"])
	}
}
