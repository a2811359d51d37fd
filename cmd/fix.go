package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/watcher"
)

var (
	fixLang  string
	fixWrite bool
)

// suggester is the slice of the correction pipeline the fix and optimize
// commands need.
type suggester interface {
	RequestErrorCorrection(ctx context.Context, source, errMsg string, lang language.Language) (assist.Suggestion, error)
	RequestOptimization(ctx context.Context, source string, lang language.Language) (assist.Suggestion, error)
}

// newSuggester is replaced in tests.
var newSuggester = func() (suggester, error) {
	return requireAssistant(cfg)
}

var fixCmd = &cobra.Command{
	Use:   "fix <file>",
	Short: "Ask the assistant to correct the detected error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, args[0], assist.ModeCorrection)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <file>",
	Short: "Ask the assistant for an optimized version of the source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, args[0], assist.ModeOptimization)
	},
}

func runSuggest(cmd *cobra.Command, path string, mode assist.Mode) error {
	lang, err := resolveLanguage(fixLang, path)
	if err != nil {
		return err
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var d *diag.Diagnostic
	if mode == assist.ModeCorrection {
		d = watcher.Evaluate(cmd.Context(), diag.Linter{}, diag.Document{Language: lang, Text: src}, logger)
		if d == nil {
			printDiagnostic(out, path, nil)
			return nil
		}
		printDiagnostic(out, path, d)
	}

	p, err := newSuggester()
	if err != nil {
		return err
	}
	var s assist.Suggestion
	if mode == assist.ModeCorrection {
		s, err = p.RequestErrorCorrection(cmd.Context(), src, d.Message, lang)
	} else {
		s, err = p.RequestOptimization(cmd.Context(), src, lang)
	}
	if err != nil {
		title, detail := assist.Describe(err)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", errColor.Sprint(title), detail)
		return err
	}

	if s.Unchanged {
		if mode == assist.ModeOptimization {
			okColor.Fprintln(out, "Code is already optimized")
		} else {
			noteColor.Fprintln(out, "No changes suggested")
		}
		return nil
	}
	if !fixWrite {
		fmt.Fprintln(out, s.Text)
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s.Text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	okColor.Fprintf(out, "Code updated: %s\n", path)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{fixCmd, optimizeCmd} {
		c.Flags().StringVarP(&fixLang, "lang", "l", "", "language (default inferred from the extension)")
		c.Flags().BoolVarP(&fixWrite, "write", "w", false, "write the suggestion back to the file")
		rootCmd.AddCommand(c)
	}
}
