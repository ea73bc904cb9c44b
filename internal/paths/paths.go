// Package paths provides a single source of truth for chic file paths.
// All path helpers honor the CHIC_DIR environment variable so tests and
// side-by-side installs can run fully isolated.
//
// Path resolution precedence:
//  1. CHIC_DIR env var sets the base directory (derives log/projects/plan)
//  2. Default behavior (~/.chic, ~/.config/chic) when it is not set
package paths

import (
	"os"
	"path/filepath"
)

// EnvChicDir is the base directory override (e.g., /tmp/chic-test).
// When set, log, projects, plan, and config paths derive from it.
const EnvChicDir = "CHIC_DIR"

// BaseDir returns the chic base directory (~/.chic by default).
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvChicDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chic"), nil
}

// ConfigDir returns the chic config directory (~/.config/chic by default).
// When CHIC_DIR is set, returns CHIC_DIR/config instead.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvChicDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chic"), nil
}

// ConfigPath returns the path to the global chic config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CommandsDir returns the user slash-command directory
// (~/.chic/commands by default).
func CommandsDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "commands"), nil
}

// ProjectsDir returns the session store root (~/.chic/projects by default).
func ProjectsDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "projects"), nil
}

// PlanDir returns the plan-mode scratch directory (~/.chic/plan by default).
func PlanDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "plan"), nil
}

// LogPath returns the log file path (~/.chic/chic.log by default).
func LogPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "chic.log"), nil
}
