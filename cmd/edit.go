package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/session"
	"github.com/fakeyudi/codepad/internal/tui"
)

var (
	editLang   string
	editResume bool
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the interactive playground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd)
	},
}

func addEditFlags(c *cobra.Command) {
	c.Flags().StringVarP(&editLang, "lang", "l", "", "language to start with (default from config)")
	c.Flags().BoolVarP(&editResume, "resume", "r", false, "resume the last saved session")
}

// runEdit opens the TUI and saves the session when it exits.
func runEdit(cmd *cobra.Command) error {
	if !term.IsTerminal(os.Stdout.Fd()) {
		return errors.New("the playground needs an interactive terminal; see 'codepad run --help'")
	}

	store, err := session.NewStore()
	if err != nil {
		return err
	}
	sess, err := startingSession(store)
	if err != nil {
		return err
	}

	ctrl, err := newController(cfg, sess, cfg.AutoCorrectEnabled())
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := tui.Run(cmd.Context(), ctrl); err != nil {
		return err
	}
	if err := store.Save(ctrl.Snapshot()); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// startingSession resumes the saved session when asked to, otherwise starts
// a fresh one in the requested language.
func startingSession(store session.Store) (*session.Session, error) {
	if editResume {
		s, err := store.Load()
		switch {
		case err == nil:
			if editLang != "" && string(s.Language) != editLang {
				logger.Warn("--lang ignored when resuming", "lang", s.Language)
			}
			return s, nil
		case !errors.Is(err, session.ErrNoSession):
			return nil, err
		}
		logger.Info("no saved session, starting fresh")
	}
	lang, err := resolveLanguage(editLang, "")
	if err != nil {
		return nil, err
	}
	return session.New(lang), nil
}

func init() {
	addEditFlags(editCmd)
	rootCmd.AddCommand(editCmd)
}
