package cli

import (
	"os"
	"testing"

	"github.com/chicdev/chic/internal/paths"
)

func TestChicDirFlagSetsEnv(t *testing.T) {
	orig := chicDir
	t.Cleanup(func() {
		chicDir = orig
		os.Unsetenv(paths.EnvChicDir)
	})

	chicDir = t.TempDir()
	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE: %v", err)
	}
	if got := os.Getenv(paths.EnvChicDir); got != chicDir {
		t.Errorf("env = %q, want %q", got, chicDir)
	}
}

func TestChicDirFlagEmptyLeavesEnv(t *testing.T) {
	orig := chicDir
	t.Cleanup(func() {
		chicDir = orig
		os.Unsetenv(paths.EnvChicDir)
	})

	os.Unsetenv(paths.EnvChicDir)
	chicDir = ""
	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE: %v", err)
	}
	if got := os.Getenv(paths.EnvChicDir); got != "" {
		t.Errorf("env = %q, want empty", got)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"sessions": false, "compact": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
