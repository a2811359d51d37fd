package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/watcher"
)

var checkLang string

var errDiagnostics = errors.New("errors detected")

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Report the most relevant error in each source file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]*diag.Diagnostic, len(args))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		for i, path := range args {
			g.Go(func() error {
				lang, err := resolveLanguage(checkLang, path)
				if err != nil {
					return err
				}
				src, err := readSource(path)
				if err != nil {
					return err
				}
				doc := diag.Document{Language: lang, Text: src}
				results[i] = watcher.Evaluate(ctx, diag.Linter{}, doc, logger.With("file", path))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := false
		for i, path := range args {
			printDiagnostic(cmd.OutOrStdout(), path, results[i])
			failed = failed || results[i] != nil
		}
		if failed {
			return errDiagnostics
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkLang, "lang", "l", "", "language for every file (default inferred per file)")
	rootCmd.AddCommand(checkCmd)
}
