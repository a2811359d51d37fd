package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/config"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is built from --log-level and --log-file in PersistentPreRunE.
var logger = slog.New(slog.DiscardHandler)

var (
	logLevel string
	logFile  string
	logOut   io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "codepad",
	Short: "A terminal code playground with live diagnostics and assisted fixes",
	Long: `codepad edits, checks and runs small programs in JavaScript, TypeScript,
Python, Java, C#, PHP and C++. Errors are detected as you type and an
assistant can propose a corrected or optimized version of the source.

Running codepad without a subcommand opens the interactive editor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}

		// Skip config loading for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First run: no global config yet → offer the wizard, but only
		// when stdin is an interactive terminal.
		if path, err := config.GlobalPath(); err == nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) && term.IsTerminal(os.Stdin.Fd()) {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to codepad! Looks like this is your first time.")
				if err := runSetup(cmd, os.Stdin); err != nil {
					return err
				}
			}
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		logger.Debug("config loaded", "lang", cfg.DefaultLanguage, "mode", cfg.ExecutionMode)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logOut != nil {
			err := logOut.Close()
			logOut = nil
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd)
	},
}

// setupLogging builds the package logger. Without --log-file only warnings
// and errors reach stderr, and nothing is logged while the editor owns the
// terminal.
func setupLogging(cmd *cobra.Command) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logOut = f
		logger = slog.New(slog.NewTextHandler(f, opts))
	case !cmd.HasParent() || cmd.Name() == "edit":
		logger = slog.New(slog.DiscardHandler)
	default:
		if level < slog.LevelWarn {
			opts.Level = slog.LevelWarn
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Failed runs and detected errors were already printed.
		if !errors.Is(err, errExecutionFailed) && !errors.Is(err, errDiagnostics) {
			errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file")
	addEditFlags(rootCmd)
}
