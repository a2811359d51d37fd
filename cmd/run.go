package cmd

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	runLang  string
	runStdin string
)

var errExecutionFailed = errors.New("execution failed")

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a source file once and print its output",
	Long: `Run a source file once and print its output.

Use --stdin to supply the input the program reads, or "-" to read it from
standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		lang, err := resolveLanguage(runLang, path)
		if err != nil {
			return err
		}
		src, err := readSource(path)
		if err != nil {
			return err
		}
		stdin := runStdin
		if stdin == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			stdin = strings.TrimRight(string(data), "\r\n")
		}

		res := newRunner(cfg).Run(cmd.Context(), lang, src, stdin)
		printResult(cmd.OutOrStdout(), res)
		if res.IsError {
			return errExecutionFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runLang, "lang", "l", "", "language (default inferred from the extension)")
	runCmd.Flags().StringVar(&runStdin, "stdin", "", `program input, or "-" to read standard input`)
	rootCmd.AddCommand(runCmd)
}
