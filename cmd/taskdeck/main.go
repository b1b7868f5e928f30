// Command taskdeck is a terminal client for a remote todo service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/app"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/controller"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/store"
	appsync "github.com/taskdeck/taskdeck/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskdeck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	apiURL := flag.String("api-url", "", "override the API base URL")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}

	// Stdout belongs to the TUI; logs go to a file next to the state db.
	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ring, err := session.OpenKeyring()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}
	sess := session.New(ring)

	dbPath, err := store.DefaultPath()
	if err != nil {
		return err
	}
	local, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening preference store: %w", err)
	}
	defer local.Close()

	client := api.NewClient(cfg.API.BaseURL, sess,
		time.Duration(cfg.API.TimeoutSec)*time.Second)
	ctrl := controller.New(api.NewTodoService(client), api.NewCategoryService(client))
	authMgr := auth.NewManager(client, sess)
	poller := appsync.New(ctrl, time.Duration(cfg.Display.PollIntervalSec)*time.Second)

	darkMode := cfg.Display.DarkMode
	if saved, err := local.DarkMode(context.Background(), darkMode); err == nil {
		darkMode = saved
	}

	root := app.New(app.Options{
		Session:    sess,
		Auth:       authMgr,
		Controller: ctrl,
		Local:      local,
		Poller:     poller,
		DarkMode:   darkMode,
		Logger:     logger,
	})

	logger.Info("starting", "api", cfg.API.BaseURL)

	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openLogFile creates the log file under the same directory as the state
// database.
func openLogFile() (*os.File, error) {
	dbPath, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "taskdeck.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
