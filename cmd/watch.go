package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/codepad/internal/filewatch"
	"github.com/fakeyudi/codepad/internal/session"
)

var (
	watchLang        string
	watchAutoCorrect bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Check a file every time it is saved",
	Long: `Check a file every time it is saved and print the detected error.

With --fix (or auto_correct in the config) the assistant's correction is
printed as soon as an error settles. The file itself is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		lang, err := resolveLanguage(watchLang, path)
		if err != nil {
			return err
		}
		if _, err := readSource(path); err != nil {
			return err
		}

		auto := cfg.AutoCorrectEnabled()
		if cmd.Flags().Changed("fix") {
			auto = watchAutoCorrect
		}
		ctrl, err := newController(cfg, session.New(lang), auto)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		out := cmd.OutOrStdout()
		events := make(chan session.Event, 64)
		defer ctrl.Subscribe(func(e session.Event) {
			select {
			case events <- e:
			default:
				logger.Warn("watch output lagging, event dropped", "op", e.Kind.String())
			}
		})()

		dimColor.Fprintf(out, "watching %s (%s), ctrl+c to stop\n", path, lang.DisplayName())

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer cancel()
			return filewatch.Watch(ctx, path, ctrl, logger)
		})
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-events:
					printEvent(out, path, e)
				}
			}
		})
		return g.Wait()
	},
}

// printEvent writes the watch-mode view of one controller event.
func printEvent(out io.Writer, path string, e session.Event) {
	switch e.Kind {
	case session.EventDiagnostic:
		printDiagnostic(out, path, e.Session.Diagnostic)
	case session.EventCorrection:
		if p := e.Session.Pending; p != nil && !p.Unchanged {
			headColor.Fprintf(out, "── suggested %s ──\n", p.Mode)
			fmt.Fprintln(out, p.Text)
		}
	case session.EventNotice:
		printNotice(out, e.Notice)
	}
}

func init() {
	watchCmd.Flags().StringVarP(&watchLang, "lang", "l", "", "language (default inferred from the extension)")
	watchCmd.Flags().BoolVar(&watchAutoCorrect, "fix", false, "request a correction whenever an error is detected")
	rootCmd.AddCommand(watchCmd)
}
