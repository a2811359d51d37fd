package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved playground session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		if err := store.Delete(); err != nil {
			return err
		}
		cmd.Println("Session cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
