package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved playground session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}

		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no saved session")
				return nil
			}
			return err
		}

		cmd.Printf("Started: %s\n", s.StartTime.Format(time.RFC3339))
		cmd.Printf("Language: %s %s\n", s.Language.DisplayName(), s.Language.Version())
		cmd.Printf("Source lines: %d\n", lineCount(s.Source))
		if s.Diagnostic != nil {
			cmd.Printf("Diagnostic: %s\n", s.Diagnostic)
		} else {
			cmd.Println("Diagnostic: none")
		}
		cmd.Printf("Runs: %d\n", len(s.History))
		return nil
	},
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
