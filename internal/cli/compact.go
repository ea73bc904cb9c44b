package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chicdev/chic/internal/config"
	"github.com/chicdev/chic/internal/session"
)

// compactDryRun is the --dry-run flag value.
var compactDryRun bool

var compactCmd = &cobra.Command{
	Use:   "compact <session-id>",
	Short: "Shrink stored tool output in a session",
	Long:  "Replace large tool outputs in older turns of a stored session with short summaries, keeping recent turns intact.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		store := session.NewStore("")
		history, err := store.LoadHistory(cwd, sessionID)
		if err != nil {
			return err
		}

		compactor := session.NewCompactor(cfg.KeepRecentTurns(), cfg.MinResultBytes())
		compacted, stats := compactor.Compact(history, compactDryRun)
		if !compactDryRun && stats.BlocksCompacted > 0 {
			if err := store.Rewrite(cwd, sessionID, compacted); err != nil {
				return err
			}
		}

		verb := "compacted"
		if compactDryRun {
			verb = "would compact"
		}
		fmt.Printf("%s: %s %d tool results, saving %d bytes (~%d tokens)\n",
			sessionID, verb, stats.BlocksCompacted, stats.BytesSaved, stats.TokensSaved)
		return nil
	},
}

func init() {
	compactCmd.Flags().BoolVarP(&compactDryRun, "dry-run", "n", false, "report savings without rewriting the session")
	rootCmd.AddCommand(compactCmd)
}
