// Package store persists local UI preferences in a SQLite database: the
// dark mode setting and the last used list filter. Todos themselves are
// never stored here; the remote API owns them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/taskdeck/taskdeck/internal/api"
)

const (
	prefDarkMode   = "dark_mode"
	prefLastFilter = "last_filter"
)

// LocalStore is the on-disk preference store.
type LocalStore struct {
	db *sqlx.DB
}

// DefaultPath returns the default database location under the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "taskdeck", "state.db"), nil
}

// Open opens (or creates) the preference database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*LocalStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &LocalStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *LocalStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// DarkMode returns the persisted dark mode setting, or fallback when none
// has been saved yet.
func (s *LocalStore) DarkMode(ctx context.Context, fallback bool) (bool, error) {
	value, ok, err := s.getPref(ctx, prefDarkMode)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return value == "1", nil
}

// SetDarkMode persists the dark mode setting.
func (s *LocalStore) SetDarkMode(ctx context.Context, dark bool) error {
	value := "0"
	if dark {
		value = "1"
	}
	return s.setPref(ctx, prefDarkMode, value)
}

// LastFilter returns the most recently saved list filter. The second
// return value is false when no filter has been saved.
func (s *LocalStore) LastFilter(ctx context.Context) (api.TodoFilter, bool, error) {
	value, ok, err := s.getPref(ctx, prefLastFilter)
	if err != nil || !ok {
		return api.TodoFilter{}, false, err
	}

	var filter api.TodoFilter
	if err := json.Unmarshal([]byte(value), &filter); err != nil {
		return api.TodoFilter{}, false, fmt.Errorf("unmarshaling saved filter: %w", err)
	}
	return filter, true, nil
}

// SetLastFilter persists the list filter for the next session.
func (s *LocalStore) SetLastFilter(ctx context.Context, filter api.TodoFilter) error {
	value, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("marshaling filter: %w", err)
	}
	return s.setPref(ctx, prefLastFilter, string(value))
}

func (s *LocalStore) getPref(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *LocalStore) setPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}
