package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fakeyudi/codepad/internal/language"
)

// RunSetup runs the interactive setup wizard and returns the resulting
// config. If existing is non-nil, its values are offered as defaults.
func RunSetup(in io.Reader, out io.Writer, existing *Config) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		return strings.ToLower(ans) == "y" || strings.ToLower(ans) == "yes", nil
	}

	cfg := Merge(existing, nil)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │       codepad · setup           │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	for {
		ans, err := ask("  Default language", cfg.DefaultLanguage)
		if err != nil {
			return nil, err
		}
		lang, err := language.Parse(ans)
		if err == nil {
			cfg.DefaultLanguage = string(lang)
			break
		}
		fmt.Fprintf(out, "  unknown language %q\n", ans)
	}

	var err error
	cfg.APIKeyEnv, err = ask("  Environment variable holding the API key", cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	cfg.Model, err = ask("  Model", cfg.Model)
	if err != nil {
		return nil, err
	}

	auto, err := askBool("  Request a fix automatically when an error is detected", cfg.AutoCorrectEnabled())
	if err != nil {
		return nil, err
	}
	cfg.AutoCorrect = &auto

	remote, err := askBool("  Execute code on a remote runner instead of simulating", cfg.ExecutionMode == ModeRemote)
	if err != nil {
		return nil, err
	}
	cfg.ExecutionMode = ModeSimulate
	if remote {
		cfg.ExecutionMode = ModeRemote
		cfg.ExecutionEndpoint, err = ask("  Runner endpoint", cfg.ExecutionEndpoint)
		if err != nil {
			return nil, err
		}
	}

	debounce, err := ask("  Error check delay in ms", strconv.Itoa(cfg.DebounceMS))
	if err != nil {
		return nil, err
	}
	if n, convErr := strconv.Atoi(debounce); convErr == nil && n > 0 {
		cfg.DebounceMS = n
	}

	fmt.Fprintln(out)
	return &cfg, nil
}
