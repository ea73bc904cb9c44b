// Package config provides configuration loading for chic.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chicdev/chic/internal/paths"
)

// Config is the global chic configuration, loaded from
// ~/.config/chic/config.toml. All fields are optional; zero values fall back
// to defaults via the accessor methods.
type Config struct {
	// PermissionMode is the mode new agents start in:
	// "default", "accept-edits", or "plan".
	PermissionMode string `toml:"permission-mode"`

	// AllowedTools are tool names that never require approval, in addition
	// to the built-in always-allow list.
	AllowedTools []string `toml:"allowed-tools"`

	// ClaudeBinary overrides the claude CLI binary path.
	ClaudeBinary string `toml:"claude-binary"`

	// PlanDir is the scratch directory writable in plan mode.
	PlanDir string `toml:"plan-dir"`

	// LogLevel controls logging verbosity ("debug", "info", "warn", "error").
	LogLevel string `toml:"log-level"`

	Compaction CompactionConfig `toml:"compaction"`
}

// CompactionConfig controls session compaction.
type CompactionConfig struct {
	// KeepRecentTurns is the number of most recent assistant turns whose
	// tool outputs are never compacted.
	KeepRecentTurns int `toml:"keep-recent-turns"`

	// MinResultBytes is the smallest tool result eligible for compaction.
	MinResultBytes int `toml:"min-result-bytes"`
}

// Defaults used when fields are unset.
const (
	DefaultPermissionMode  = "default"
	DefaultClaudeBinary    = "claude"
	DefaultKeepRecentTurns = 3
	DefaultMinResultBytes  = 1024
)

// Path returns the path to the chic config file.
func Path() (string, error) {
	return paths.ConfigPath()
}

// Load reads the global config. A missing file is not an error; it yields an
// empty config so every field falls back to its default.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config from a specific file.
func LoadFromPath(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Binary returns the claude CLI binary to spawn.
func (c *Config) Binary() string {
	if c == nil || c.ClaudeBinary == "" {
		return DefaultClaudeBinary
	}
	return c.ClaudeBinary
}

// Mode returns the configured default permission mode string.
func (c *Config) Mode() string {
	if c == nil || c.PermissionMode == "" {
		return DefaultPermissionMode
	}
	return c.PermissionMode
}

// ScratchDir returns the plan-mode scratch directory (~/.chic/plan unless
// overridden).
func (c *Config) ScratchDir() string {
	if c != nil && c.PlanDir != "" {
		return c.PlanDir
	}
	dir, err := paths.PlanDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chic-plan")
	}
	return dir
}

// KeepRecentTurns returns the compaction recency threshold.
func (c *Config) KeepRecentTurns() int {
	if c == nil || c.Compaction.KeepRecentTurns <= 0 {
		return DefaultKeepRecentTurns
	}
	return c.Compaction.KeepRecentTurns
}

// MinResultBytes returns the smallest compactable tool result size.
func (c *Config) MinResultBytes() int {
	if c == nil || c.Compaction.MinResultBytes <= 0 {
		return DefaultMinResultBytes
	}
	return c.Compaction.MinResultBytes
}
