package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want 30", cfg.API.TimeoutSec)
	}
	if !cfg.Display.DarkMode {
		t.Error("DarkMode should default to true")
	}
	if cfg.Display.PollIntervalSec != 120 {
		t.Errorf("PollIntervalSec = %d, want 120", cfg.Display.PollIntervalSec)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `api:
  base_url: https://todo.example.com/api
  timeout_sec: 5
display:
  dark_mode: false
  poll_interval_sec: 60
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.API.BaseURL != "https://todo.example.com/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSec != 5 {
		t.Errorf("TimeoutSec = %d, want 5", cfg.API.TimeoutSec)
	}
	if cfg.Display.DarkMode {
		t.Error("DarkMode should be false")
	}
	if cfg.Display.PollIntervalSec != 60 {
		t.Errorf("PollIntervalSec = %d, want 60", cfg.Display.PollIntervalSec)
	}
}

func TestLoadConfigEnvOverridesBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("TASKDECK_API_URL", "https://override.example.com/api")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://override.example.com/api" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}
}

func TestLoadConfigClampsInvalidDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `api:
  timeout_sec: -1
display:
  poll_interval_sec: 0
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want fallback 30", cfg.API.TimeoutSec)
	}
	if cfg.Display.PollIntervalSec != 120 {
		t.Errorf("PollIntervalSec = %d, want fallback 120", cfg.Display.PollIntervalSec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := &AppConfig{
		API:     APIConfig{BaseURL: "https://todo.example.com/api", TimeoutSec: 10},
		Display: DisplayConfig{DarkMode: false, PollIntervalSec: 45},
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.API.BaseURL != want.API.BaseURL {
		t.Errorf("BaseURL = %q, want %q", got.API.BaseURL, want.API.BaseURL)
	}
	if got.API.TimeoutSec != want.API.TimeoutSec {
		t.Errorf("TimeoutSec = %d, want %d", got.API.TimeoutSec, want.API.TimeoutSec)
	}
	if got.Display.DarkMode != want.Display.DarkMode {
		t.Errorf("DarkMode = %v, want %v", got.Display.DarkMode, want.Display.DarkMode)
	}
	if got.Display.PollIntervalSec != want.Display.PollIntervalSec {
		t.Errorf("PollIntervalSec = %d, want %d", got.Display.PollIntervalSec, want.Display.PollIntervalSec)
	}
}
