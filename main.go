// main.go - Entry point for the deepchat terminal client
// Sets up logging and local storage, wires the API client to the session and
// deep-search stores, and runs the terminal application.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"deepchat/src/api"
	"deepchat/src/app"
	"deepchat/src/deepsearch"
	"deepchat/src/services/storage"
	"deepchat/src/session"

	tea "github.com/charmbracelet/bubbletea"
)

// =====================================================================================
// 🚀 Application Entry Point
// =====================================================================================

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := storage.EnsureEnvironment(dir); err != nil {
		return err
	}

	cfg, err := storage.LoadConfig(dir)
	if err != nil {
		return err
	}

	creds, err := storage.NewCredentialStore(dir)
	if err != nil {
		return err
	}

	// The client signals rejected credentials through this channel; the app
	// quits and points the user at the login page.
	unauthorized := make(chan struct{}, 1)
	client := api.NewClient(api.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout(),
	}, creds, func() {
		select {
		case unauthorized <- struct{}{}:
		default:
		}
	}, logger)

	chatStore := session.NewStore(client, logger)
	deepStore := deepsearch.NewStore(client, logger)
	coord := session.NewCoordinator(chatStore, deepStore)

	logger.Info("Starting deepchat", "base_url", cfg.BaseURL)

	program := app.NewProgram(app.New(coord, cfg.LoginURL, unauthorized, logger))
	setupGracefulShutdown(program, logger)

	final, err := program.Run()
	if err != nil {
		return err
	}
	if msg := app.Farewell(final); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}

	logger.Info("Application completed successfully")
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deepchat"), nil
}

// =====================================================================================
// 🛡️ Graceful Shutdown
// =====================================================================================

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown(program *tea.Program, logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Received shutdown signal, cleaning up...")
		program.Quit()
	}()
}
