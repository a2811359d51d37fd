package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/session"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the runs recorded in the saved session, newest first",
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
		if len(s.History) == 0 {
			cmd.Println("no runs recorded")
			return nil
		}

		out := cmd.OutOrStdout()
		runs := s.History
		if historyLimit > 0 && historyLimit < len(runs) {
			runs = runs[:historyLimit]
		}
		for i, r := range runs {
			status := okColor.Sprint("ok")
			if r.IsError {
				status = errColor.Sprint("error")
			}
			fmt.Fprintf(out, "%s %s  %s\n",
				headColor.Sprintf("#%d", i+1),
				dimColor.Sprint(r.Timestamp.Format("2006-01-02 15:04:05")),
				status)
			for _, line := range r.OutputLines {
				fmt.Fprintf(out, "  %s\n", line)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most this many runs (0 shows all)")
	rootCmd.AddCommand(historyCmd)
}
