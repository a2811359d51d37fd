package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fakeyudi/codepad/internal/language"
)

// Execution modes.
const (
	ModeSimulate = "simulate"
	ModeRemote   = "remote"
)

// ProjectFile is the per-directory override file.
const ProjectFile = "codepad.toml"

// Config holds all configurable codepad settings. The API key itself is never
// stored; APIKeyEnv names the environment variable that holds it.
type Config struct {
	DefaultLanguage   string `json:"default_language,omitempty" toml:"default_language"`
	DebounceMS        int    `json:"debounce_ms,omitempty" toml:"debounce_ms"`
	Model             string `json:"model,omitempty" toml:"model"`
	Endpoint          string `json:"endpoint,omitempty" toml:"endpoint"`
	APIKeyEnv         string `json:"api_key_env,omitempty" toml:"api_key_env"`
	RequestTimeoutSec int    `json:"request_timeout_sec,omitempty" toml:"request_timeout_sec"`
	AutoCorrect       *bool  `json:"auto_correct,omitempty" toml:"auto_correct"`
	ExecutionMode     string `json:"execution_mode,omitempty" toml:"execution_mode"` // "simulate" | "remote"
	ExecutionEndpoint string `json:"execution_endpoint,omitempty" toml:"execution_endpoint"`
	LatencyMS         *int   `json:"latency_ms,omitempty" toml:"latency_ms"` // 0 disables the delay
	SandboxTimeoutMS  int    `json:"sandbox_timeout_ms,omitempty" toml:"sandbox_timeout_ms"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	auto := true
	latency := 300
	return Config{
		DefaultLanguage:   string(language.JavaScript),
		DebounceMS:        800,
		Model:             "gemini-2.0-flash",
		Endpoint:          "https://generativelanguage.googleapis.com/v1beta/models",
		APIKeyEnv:         "GEMINI_API_KEY",
		RequestTimeoutSec: 30,
		AutoCorrect:       &auto,
		ExecutionMode:     ModeSimulate,
		ExecutionEndpoint: "https://emkc.org/api/v2/piston/execute",
		LatencyMS:         &latency,
		SandboxTimeoutMS:  2000,
	}
}

// Dir returns ~/.config/codepad.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codepad"), nil
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadGlobal reads ~/.config/codepad/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d := Defaults()
			return &d, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// SaveGlobal writes cfg to the global config file.
func SaveGlobal(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadProject reads codepad.toml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadTOML(ProjectFile)
}

func loadTOML(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, src := range []*Config{global, project} {
		if src == nil {
			continue
		}
		overlay(&result, src)
	}
	return result
}

func overlay(dst, src *Config) {
	if src.DefaultLanguage != "" {
		dst.DefaultLanguage = src.DefaultLanguage
	}
	if src.DebounceMS > 0 {
		dst.DebounceMS = src.DebounceMS
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.APIKeyEnv != "" {
		dst.APIKeyEnv = src.APIKeyEnv
	}
	if src.RequestTimeoutSec > 0 {
		dst.RequestTimeoutSec = src.RequestTimeoutSec
	}
	if src.AutoCorrect != nil {
		v := *src.AutoCorrect
		dst.AutoCorrect = &v
	}
	if src.ExecutionMode != "" {
		dst.ExecutionMode = src.ExecutionMode
	}
	if src.ExecutionEndpoint != "" {
		dst.ExecutionEndpoint = src.ExecutionEndpoint
	}
	if src.LatencyMS != nil {
		v := *src.LatencyMS
		dst.LatencyMS = &v
	}
	if src.SandboxTimeoutMS > 0 {
		dst.SandboxTimeoutMS = src.SandboxTimeoutMS
	}
}

// Validate checks values that cannot be merged blindly.
func (c Config) Validate() error {
	if _, err := language.Parse(c.DefaultLanguage); err != nil {
		return fmt.Errorf("default_language: %w", err)
	}
	if c.ExecutionMode != ModeSimulate && c.ExecutionMode != ModeRemote {
		return fmt.Errorf("execution_mode: want %q or %q, got %q", ModeSimulate, ModeRemote, c.ExecutionMode)
	}
	return nil
}

// Language returns the parsed default language.
func (c Config) Language() (language.Language, error) {
	return language.Parse(c.DefaultLanguage)
}

// APIKey reads the assistant key from the environment. Empty means the
// assistant is disabled.
func (c Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// AutoCorrectEnabled reports the auto_correct setting.
func (c Config) AutoCorrectEnabled() bool {
	return c.AutoCorrect == nil || *c.AutoCorrect
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c Config) Latency() time.Duration {
	if c.LatencyMS == nil || *c.LatencyMS < 0 {
		return 0
	}
	return time.Duration(*c.LatencyMS) * time.Millisecond
}

func (c Config) SandboxTimeout() time.Duration {
	return time.Duration(c.SandboxTimeoutMS) * time.Millisecond
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
