package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure codepad (re-run anytime to edit settings)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, cmd.InOrStdin())
	},
}

// runSetup runs the interactive wizard and saves the global config.
func runSetup(cmd *cobra.Command, in io.Reader) error {
	out := cmd.OutOrStdout()

	// Load the existing config as defaults if present.
	existing, err := config.LoadGlobal()
	if err != nil {
		logger.Warn("ignoring unreadable global config", "err", err)
		existing = nil
	}

	c, err := config.RunSetup(in, out, existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.SaveGlobal(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	okColor.Fprintln(out, "  ✓ Config saved.")

	if c.APIKeyEnv != "" && os.Getenv(c.APIKeyEnv) == "" {
		noteColor.Fprintf(out, "  ⚠ %s is not set; fixes and optimizations stay disabled until it is.\n", c.APIKeyEnv)
	}
	fmt.Fprintln(out, "  Setup complete. Run 'codepad' to open the playground.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
