// Package cli implements the chic command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chicdev/chic/internal/logging"
	"github.com/chicdev/chic/internal/paths"
)

// chicDir is the global --chic-dir flag value.
var chicDir string

// logLevel is the global --log-level flag value.
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "chic",
	Short: "Multi-agent Claude chat for the terminal",
	Long:  "chic runs multiple Claude Code agents side by side in a terminal interface, with per-agent permission prompts and persistent sessions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set CHIC_DIR environment variable if --chic-dir is provided.
		// This allows all path helpers to use the override.
		if chicDir != "" {
			if err := os.Setenv(paths.EnvChicDir, chicDir); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// setupLogging configures file logging, preferring the --log-level flag over
// the config value. Returns the log file cleanup function.
func setupLogging(configLevel string) (func(), error) {
	level := configLevel
	if logLevel != "" {
		level = logLevel
	}
	return logging.Setup("", logging.ParseLevel(level))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&chicDir, "chic-dir", "", "base directory for chic data (overrides ~/.chic)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log verbosity: debug, info, warn, error")
}

func Execute() error {
	return rootCmd.Execute()
}
