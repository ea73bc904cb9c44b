package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chicdev/chic/internal/agent"
	"github.com/chicdev/chic/internal/command"
	"github.com/chicdev/chic/internal/config"
	"github.com/chicdev/chic/internal/paths"
	"github.com/chicdev/chic/internal/permission"
	"github.com/chicdev/chic/internal/session"
	"github.com/chicdev/chic/internal/tui"
)

// resumeSessionID is the --resume flag value.
var resumeSessionID string

// runChat wires the application together and runs the TUI until exit.
func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer cleanup()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	commandsDir, err := paths.CommandsDir()
	if err != nil {
		return err
	}
	defs, err := command.LoadDir(commandsDir)
	if err != nil {
		// Bad command files shouldn't block startup.
		slog.Warn("loading custom commands", "dir", commandsDir, "error", err)
	}

	gate := permission.NewGate(cfg.ScratchDir(), cfg.AllowedTools)
	store := session.NewStore("")
	mgr := agent.NewManager(cfg, gate, store, cwd)

	slog.Info("starting chic", "cwd", cwd, "resume", resumeSessionID)
	return tui.Run(tui.Options{
		Manager:         mgr,
		Gate:            gate,
		Store:           store,
		Compactor:       session.NewCompactor(cfg.KeepRecentTurns(), cfg.MinResultBytes()),
		Registry:        command.NewRegistry(defs),
		Cwd:             cwd,
		ResumeSessionID: resumeSessionID,
	})
}

func init() {
	rootCmd.Flags().StringVarP(&resumeSessionID, "resume", "r", "", "resume a stored session by ID")
}
