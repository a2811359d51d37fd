package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/config"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/session"
)

// newRunner builds the execution engine selected by execution_mode.
func newRunner(c config.Config) *engine.Engine {
	opts := engine.Options{
		Latency:        c.Latency(),
		SandboxTimeout: c.SandboxTimeout(),
		Logger:         logger,
	}
	if c.ExecutionMode == config.ModeRemote {
		opts.Remote = engine.NewRemote(c.ExecutionEndpoint, nil, logger)
	}
	return engine.New(opts)
}

// newAssistant returns nil when no API key is available; the controller
// then reports every request as unavailable.
func newAssistant(c config.Config) (*assist.Pipeline, error) {
	client, err := assist.NewClient(assist.ClientOptions{
		BaseURL: c.Endpoint,
		Model:   c.Model,
		APIKey:  c.APIKey(),
		Timeout: c.RequestTimeout(),
		Logger:  logger,
	})
	if errors.Is(err, assist.ErrMissingAPIKey) {
		logger.Info("assistant disabled", "env", c.APIKeyEnv)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return assist.NewPipeline(client, logger), nil
}

// requireAssistant is newAssistant for commands that cannot work without one.
func requireAssistant(c config.Config) (*assist.Pipeline, error) {
	p, err := newAssistant(c)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: set %s", assist.ErrMissingAPIKey, c.APIKeyEnv)
	}
	return p, nil
}

// newController wires a controller for sess from the merged config.
func newController(c config.Config, sess *session.Session, autoCorrect bool) (*session.Controller, error) {
	opts := session.Options{
		Runner:      newRunner(c),
		Debounce:    c.Debounce(),
		AutoCorrect: autoCorrect,
		Logger:      logger,
	}
	p, err := newAssistant(c)
	if err != nil {
		return nil, err
	}
	// A typed nil pointer must not reach the interface field.
	if p != nil {
		opts.Assistant = p
	}
	return session.NewController(sess, opts), nil
}

// resolveLanguage prefers an explicit --lang, then the file extension, then
// the configured default.
func resolveLanguage(flag, path string) (language.Language, error) {
	if flag != "" {
		return language.Parse(flag)
	}
	if path != "" {
		l, err := language.FromPath(path)
		if err != nil {
			return "", fmt.Errorf("%w (pass --lang)", err)
		}
		return l, nil
	}
	return cfg.Language()
}

// readSource loads a source file, reporting a friendly error when it is missing.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", err
	}
	return string(data), nil
}
