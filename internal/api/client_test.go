package api_test

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
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
)

// newSession builds a session store seeded with the given tokens.
func newSession(t *testing.T, access, refresh string) *session.Store {
	t.Helper()

	var items []keyring.Item
	if access != "" {
		items = append(items, keyring.Item{Key: "access_token", Data: []byte(access)})
	}
	if refresh != "" {
		items = append(items, keyring.Item{Key: "refresh_token", Data: []byte(refresh)})
	}
	items = append(items, keyring.Item{
		Key:  "user",
		Data: []byte(`{"id":"user-1","email":"ada@example.com","username":"ada"}`),
	})

	return session.New(keyring.NewArrayKeyring(items))
}

func newClient(t *testing.T, srv *httptest.Server, sess *session.Store) *api.Client {
	t.Helper()
	return api.NewClient(srv.URL, sess, 5*time.Second)
}

func TestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[],"count":0}`))
	}))
	defer srv.Close()

	sess := newSession(t, "access-1", "refresh-1")
	c := newClient(t, srv, sess)

	var resp struct{}
	if err := c.Get(context.Background(), "/todos/", nil, &resp); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "Bearer access-1" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer access-1")
	}
}

func TestNoTokenMeansUnauthenticatedRequest(t *testing.T) {
	var sawAuthHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuthHeader = r.Header.Get("Authorization") != ""
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := session.New(keyring.NewArrayKeyring(nil))
	c := newClient(t, srv, sess)

	if err := c.Post(context.Background(), "/auth/login/", map[string]string{}, nil); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if sawAuthHeader {
		t.Error("unauthenticated request carried an Authorization header")
	}
}

func TestRefreshAndRetryOn401(t *testing.T) {
	var todoAuths []string
	var refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/todos/", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		todoAuths = append(todoAuths, auth)
		if auth != "Bearer access-new" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"token expired"}`))
			return
		}
		w.Write([]byte(`{"results":[],"count":0}`))
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding refresh body: %v", err)
		}
		if body["refresh"] != "refresh-1" {
			t.Errorf("refresh body = %q, want %q", body["refresh"], "refresh-1")
		}
		w.Write([]byte(`{"access":"access-new"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newSession(t, "access-stale", "refresh-1")
	c := newClient(t, srv, sess)

	var resp struct{}
	if err := c.Get(context.Background(), "/todos/", nil, &resp); err != nil {
		t.Fatalf("Get after refresh: %v", err)
	}

	if refreshCalls != 1 {
		t.Errorf("refresh endpoint called %d times, want 1", refreshCalls)
	}
	want := []string{"Bearer access-stale", "Bearer access-new"}
	if len(todoAuths) != len(want) {
		t.Fatalf("todo endpoint hit %d times, want %d", len(todoAuths), len(want))
	}
	for i := range want {
		if todoAuths[i] != want[i] {
			t.Errorf("attempt %d Authorization = %q, want %q", i, todoAuths[i], want[i])
		}
	}

	// The refreshed token must be persisted for subsequent requests.
	if got := sess.AccessToken(); got != "access-new" {
		t.Errorf("session access token = %q, want %q", got, "access-new")
	}
}

func TestLogin401NeverTriggersRefresh(t *testing.T) {
	var refreshCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid credentials"}`))
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		w.Write([]byte(`{"access":"access-new"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newSession(t, "", "refresh-1")
	c := newClient(t, srv, sess)

	err := c.Post(context.Background(), "/auth/login/", map[string]string{}, nil)

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
	if refreshCalls != 0 {
		t.Errorf("refresh endpoint called %d times, want 0", refreshCalls)
	}
}

func TestMissingRefreshTokenFailsImmediately(t *testing.T) {
	var todoCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		todoCalls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newSession(t, "access-stale", "")
	c := newClient(t, srv, sess)

	err := c.Get(context.Background(), "/todos/", nil, nil)
	if !errors.Is(err, api.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	if todoCalls != 1 {
		t.Errorf("todo endpoint hit %d times, want 1 (no retry)", todoCalls)
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/todos/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"refresh token expired"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newSession(t, "access-stale", "refresh-stale")
	c := newClient(t, srv, sess)

	err := c.Get(context.Background(), "/todos/", nil, nil)
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !api.IsAuthError(err) {
		t.Error("IsAuthError = false for session-expired error")
	}
	if sess.IsAuthenticated() {
		t.Error("session still authenticated after failed refresh")
	}
	if sess.RefreshToken() != "" {
		t.Error("refresh token not cleared after failed refresh")
	}
}

func TestAtMostOneRetryPerRequest(t *testing.T) {
	var todoCalls, refreshCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/todos/", func(w http.ResponseWriter, r *http.Request) {
		todoCalls++
		// Reject even the refreshed token.
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"nope"}`))
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		w.Write([]byte(`{"access":"access-new"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newSession(t, "access-stale", "refresh-1")
	c := newClient(t, srv, sess)

	err := c.Get(context.Background(), "/todos/", nil, nil)

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected terminal 401 HTTPError, got %v", err)
	}
	if todoCalls != 2 {
		t.Errorf("todo endpoint hit %d times, want exactly 2", todoCalls)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh endpoint hit %d times, want exactly 1", refreshCalls)
	}
}

func TestTransportFailureIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	sess := newSession(t, "access-1", "refresh-1")
	c := api.NewClient(srv.URL, sess, time.Second)

	err := c.Get(context.Background(), "/todos/", nil, nil)

	var reqErr *api.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
}

func TestServerFieldErrorsAreMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"email":["enter a valid email address"],"password":"too short"}`))
	}))
	defer srv.Close()

	sess := session.New(keyring.NewArrayKeyring(nil))
	c := newClient(t, srv, sess)

	err := c.Post(context.Background(), "/auth/register/", map[string]string{}, nil)

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if got := httpErr.FieldError("email"); got != "enter a valid email address" {
		t.Errorf("email field error = %q", got)
	}
	if got := httpErr.FieldError("password"); got != "too short" {
		t.Errorf("password field error = %q", got)
	}
	if got := httpErr.FieldError("username"); got != "" {
		t.Errorf("unexpected username field error %q", got)
	}
}

func TestGeneralErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"todo not found"}`))
	}))
	defer srv.Close()

	sess := newSession(t, "access-1", "refresh-1")
	c := newClient(t, srv, sess)

	var todo model.Todo
	err := c.Get(context.Background(), "/todos/missing/", nil, &todo)

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.Message != "todo not found" {
		t.Errorf("got status=%d message=%q", httpErr.StatusCode, httpErr.Message)
	}
}
