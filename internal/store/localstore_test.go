package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/model"
)

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDarkModeDefaultsToFallback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dark, err := s.DarkMode(ctx, true)
	if err != nil {
		t.Fatalf("DarkMode: %v", err)
	}
	if !dark {
		t.Error("fallback true not honored")
	}

	light, err := s.DarkMode(ctx, false)
	if err != nil {
		t.Fatalf("DarkMode: %v", err)
	}
	if light {
		t.Error("fallback false not honored")
	}
}

func TestDarkModeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetDarkMode(ctx, false); err != nil {
		t.Fatalf("SetDarkMode: %v", err)
	}
	dark, err := s.DarkMode(ctx, true)
	if err != nil {
		t.Fatalf("DarkMode: %v", err)
	}
	if dark {
		t.Error("saved light mode, read back dark")
	}

	if err := s.SetDarkMode(ctx, true); err != nil {
		t.Fatalf("SetDarkMode: %v", err)
	}
	dark, err = s.DarkMode(ctx, false)
	if err != nil {
		t.Fatalf("DarkMode: %v", err)
	}
	if !dark {
		t.Error("saved dark mode, read back light")
	}
}

func TestLastFilterRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.LastFilter(ctx); err != nil || ok {
		t.Fatalf("fresh store: filter=%v err=%v, want none", ok, err)
	}

	done := false
	saved := api.TodoFilter{
		Completed: &done,
		Priority:  model.PriorityHigh,
		Search:    "report",
		Overdue:   true,
	}
	if err := s.SetLastFilter(ctx, saved); err != nil {
		t.Fatalf("SetLastFilter: %v", err)
	}

	got, ok, err := s.LastFilter(ctx)
	if err != nil {
		t.Fatalf("LastFilter: %v", err)
	}
	if !ok {
		t.Fatal("saved filter not found")
	}
	if got.Completed == nil || *got.Completed != false {
		t.Errorf("completed = %v", got.Completed)
	}
	if got.Priority != model.PriorityHigh || got.Search != "report" || !got.Overdue {
		t.Errorf("filter = %+v, want %+v", got, saved)
	}
}

func TestReopenKeepsPreferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetDarkMode(ctx, false); err != nil {
		t.Fatalf("SetDarkMode: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	dark, err := reopened.DarkMode(ctx, true)
	if err != nil {
		t.Fatalf("DarkMode: %v", err)
	}
	if dark {
		t.Error("preference lost across reopen")
	}
}
