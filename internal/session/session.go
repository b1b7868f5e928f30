package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"github.com/taskdeck/taskdeck/internal/model"
)

const serviceName = "taskdeck"

// Keyring item keys. They mirror the storage keys used by the web client
// the API was originally built for.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store holds the current session: the authenticated user and the
// access/refresh token pair. The in-memory copy is the source of truth
// during a run; the system keyring is a write-through mirror used only to
// rehydrate state at startup.
type Store struct {
	mu      sync.Mutex
	ring    keyring.Keyring
	access  string
	refresh string
	user    *model.User
}

// OpenKeyring returns the default system keyring for taskdeck.
func OpenKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskdeck/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskdeck-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// New creates a Store backed by the given keyring and rehydrates any
// persisted session from it. A missing or unreadable mirror simply yields
// an unauthenticated store.
func New(ring keyring.Keyring) *Store {
	s := &Store{ring: ring}

	s.access = readItem(ring, keyAccessToken)
	s.refresh = readItem(ring, keyRefreshToken)

	if raw := readItem(ring, keyUser); raw != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.user = &u
		}
	}

	return s
}

// AccessToken returns the current access token, or "" when absent.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RefreshToken returns the current refresh token, or "" when absent.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// CurrentUser returns the stored user identity, or nil when absent.
// It never performs network calls.
func (s *Store) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether both an access token and a user identity
// are present. It never performs network calls, so callers can gate UI
// rendering synchronously before any request completes.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != "" && s.user != nil
}

// SetSession replaces the whole session and persists all three fields to
// the keyring.
func (s *Store) SetSession(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = sess.AccessToken
	s.refresh = sess.RefreshToken
	u := sess.User
	s.user = &u

	if err := writeItem(s.ring, keyAccessToken, sess.AccessToken); err != nil {
		return err
	}
	if err := writeItem(s.ring, keyRefreshToken, sess.RefreshToken); err != nil {
		return err
	}
	return s.persistUserLocked()
}

// SetAccessToken replaces just the access token, e.g. after a refresh.
func (s *Store) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = token
	return writeItem(s.ring, keyAccessToken, token)
}

// SetUser replaces the stored user identity, e.g. after a profile update.
func (s *Store) SetUser(u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = &u
	return s.persistUserLocked()
}

// Clear drops the session from memory and removes the keyring mirror.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	s.user = nil

	var firstErr error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
		if err := removeItem(s.ring, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) persistUserLocked() error {
	data, err := json.Marshal(s.user)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}
	return writeItem(s.ring, keyUser, string(data))
}

func readItem(ring keyring.Keyring, key string) string {
	item, err := ring.Get(key)
	if err != nil {
		return ""
	}
	return string(item.Data)
}

func writeItem(ring keyring.Keyring, key, value string) error {
	err := ring.Set(keyring.Item{Key: key, Data: []byte(value)})
	if err != nil {
		return fmt.Errorf("persisting %q: %w", key, err)
	}
	return nil
}

func removeItem(ring keyring.Keyring, key string) error {
	err := ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}
