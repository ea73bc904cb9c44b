package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chicdev/chic/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions for the current directory",
	Long:  "List sessions recorded for the current working directory, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		store := session.NewStore("")
		infos, err := store.ListSessions(cwd)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, info := range infos {
			fmt.Printf("%s  %s  %6d bytes  %s\n",
				info.ID,
				info.UpdatedAt.Format("2006-01-02 15:04"),
				info.Size,
				info.Preview,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
