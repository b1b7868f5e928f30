package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
)

func sampleSession() model.Session {
	return model.Session{
		User: model.User{
			ID:        "user-1",
			Email:     "ada@example.com",
			Username:  "ada",
			FirstName: "Ada",
			LastName:  "Lovelace",
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
	}
}

func TestBootstrapWithoutTokens(t *testing.T) {
	s := session.New(keyring.NewArrayKeyring(nil))

	if s.IsAuthenticated() {
		t.Fatal("expected IsAuthenticated=false with empty keyring")
	}
	if s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Errorf("expected empty tokens, got access=%q refresh=%q",
			s.AccessToken(), s.RefreshToken())
	}
	if s.CurrentUser() != nil {
		t.Errorf("expected nil user, got %+v", s.CurrentUser())
	}
}

func TestSetSessionWritesThrough(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := session.New(ring)

	if err := s.SetSession(sampleSession()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	if !s.IsAuthenticated() {
		t.Fatal("expected IsAuthenticated=true after SetSession")
	}

	// The mirror must be readable by a fresh store (page-reload analogue).
	restored := session.New(ring)
	if !restored.IsAuthenticated() {
		t.Fatal("expected rehydrated store to be authenticated")
	}
	if got := restored.AccessToken(); got != "access-abc" {
		t.Errorf("rehydrated access token = %q, want %q", got, "access-abc")
	}
	u := restored.CurrentUser()
	if u == nil || u.Email != "ada@example.com" {
		t.Errorf("rehydrated user = %+v, want ada@example.com", u)
	}
}

func TestSetAccessTokenKeepsRefreshToken(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := session.New(ring)
	if err := s.SetSession(sampleSession()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	if err := s.SetAccessToken("access-new"); err != nil {
		t.Fatalf("SetAccessToken: %v", err)
	}

	if got := s.AccessToken(); got != "access-new" {
		t.Errorf("access token = %q, want %q", got, "access-new")
	}
	if got := s.RefreshToken(); got != "refresh-xyz" {
		t.Errorf("refresh token = %q, want %q", got, "refresh-xyz")
	}

	item, err := ring.Get("access_token")
	if err != nil {
		t.Fatalf("reading mirrored access token: %v", err)
	}
	if string(item.Data) != "access-new" {
		t.Errorf("mirrored access token = %q, want %q", item.Data, "access-new")
	}
}

func TestClearRemovesMirror(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := session.New(ring)
	if err := s.SetSession(sampleSession()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if s.IsAuthenticated() {
		t.Fatal("expected IsAuthenticated=false after Clear")
	}
	for _, key := range []string{"access_token", "refresh_token", "user"} {
		if _, err := ring.Get(key); err == nil {
			t.Errorf("key %q still present in keyring after Clear", key)
		}
	}

	// Clearing an already-empty store must not fail.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestUserMirrorIsJSON(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := session.New(ring)
	if err := s.SetSession(sampleSession()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	item, err := ring.Get("user")
	if err != nil {
		t.Fatalf("reading mirrored user: %v", err)
	}
	var u model.User
	if err := json.Unmarshal(item.Data, &u); err != nil {
		t.Fatalf("mirrored user is not valid JSON: %v", err)
	}
	if u.Username != "ada" {
		t.Errorf("mirrored username = %q, want %q", u.Username, "ada")
	}

	if err := s.SetUser(model.User{ID: "user-1", Email: "ada@example.com", Username: "countess"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if got := s.CurrentUser().Username; got != "countess" {
		t.Errorf("username after SetUser = %q, want %q", got, "countess")
	}
}
