package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/session"
	"github.com/fakeyudi/codepad/internal/transcript"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved session and its runs to a transcript file",
	Long: `Write the saved session and its runs to a transcript file.

The output is written to codepad-<timestamp>.md (or .json) in the current
directory unless -o is given; "-o -" writes to standard output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := transcript.ForFormat(exportFormat)
		if err != nil {
			return err
		}
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return errors.New("no saved session to export")
			}
			return err
		}

		now := time.Now()
		data, err := r.Render(transcript.FromSession(s, now))
		if err != nil {
			return fmt.Errorf("rendering transcript: %w", err)
		}

		path := exportOutput
		switch path {
		case "-":
			_, err := cmd.OutOrStdout().Write(data)
			return err
		case "":
			ext := ".md"
			if exportFormat == transcript.FormatJSON {
				ext = ".json"
			}
			path = "codepad-" + now.Format("20060102-150405") + ext
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
		cmd.Printf("Transcript written to %s\n", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the saved session with one from a transcript file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", args[0])
			}
			return err
		}
		t, err := transcript.Detect(data).Parse(data)
		if err != nil {
			return err
		}
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		s := t.Session()
		if err := store.Save(s); err != nil {
			return err
		}
		cmd.Printf("Imported %s session with %d runs. Resume it with 'codepad edit --resume'.\n",
			s.Language.DisplayName(), len(s.History))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", transcript.FormatMarkdown, "output format: markdown or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `output path ("-" for stdout)`)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
