// Package engine runs or simulates playground source code. Each language is
// served by a Strategy; the Engine dispatches to it, contains any fault, and
// stamps the result.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fakeyudi/codepad/internal/language"
)

// Result is the captured transcript of one run.
type Result struct {
	OutputLines []string  `json:"output_lines"`
	IsError     bool      `json:"is_error"`
	Timestamp   time.Time `json:"timestamp"`
}

// Strategy runs source for a single language. Implementations keep no state
// between calls.
type Strategy interface {
	Run(ctx context.Context, source, stdin string) Result
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, source, stdin string) Result

func (f StrategyFunc) Run(ctx context.Context, source, stdin string) Result {
	return f(ctx, source, stdin)
}

// DefaultPlaceholder stands in for stdin when the user supplied none.
const DefaultPlaceholder = "[no input]"

// Options configures an Engine.
type Options struct {
	// Latency is a cosmetic delay applied before every run.
	Latency time.Duration
	// SandboxTimeout bounds the sandboxed javascript run. Zero means 2s.
	SandboxTimeout time.Duration
	// Placeholder replaces an empty stdin. Empty means DefaultPlaceholder.
	Placeholder string
	// Remote, when set, replaces every simulated strategy with real execution.
	Remote *RemoteStrategy
	Logger *slog.Logger
	// Now is used for timestamps; tests may pin it.
	Now func() time.Time
}

// Engine dispatches runs to per-language strategies.
type Engine struct {
	strategies map[language.Language]Strategy
	latency    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New returns an Engine with a strategy registered for every supported
// language.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.SandboxTimeout <= 0 {
		opts.SandboxTimeout = 2 * time.Second
	}

	e := &Engine{
		strategies: make(map[language.Language]Strategy),
		latency:    opts.Latency,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if opts.Remote != nil {
		for _, l := range language.All() {
			e.strategies[l] = opts.Remote.For(l)
		}
		return e
	}
	e.strategies[language.JavaScript] = &Sandbox{Timeout: opts.SandboxTimeout, Placeholder: opts.Placeholder}
	for _, p := range patterns {
		e.strategies[p.Language] = &PatternStrategy{Pattern: p, Placeholder: opts.Placeholder}
	}
	return e
}

// Register installs s for lang, replacing any existing strategy.
func (e *Engine) Register(lang language.Language, s Strategy) {
	e.strategies[lang] = s
}

// Run executes source with the strategy for lang. It never panics: faults are
// returned as an error result.
func (e *Engine) Run(ctx context.Context, lang language.Language, source, stdin string) (res Result) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy panicked", "lang", lang, "err", r)
			res = Result{OutputLines: []string{fmt.Sprintf("Error: %v", r)}, IsError: true}
		}
		res.Timestamp = e.now()
		e.logger.Debug("run finished", "lang", lang, "lines", len(res.OutputLines),
			"is_error", res.IsError, "elapsed", res.Timestamp.Sub(start))
	}()

	if e.latency > 0 {
		t := time.NewTimer(e.latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return Result{OutputLines: []string{"Error: " + ctx.Err().Error()}, IsError: true}
		}
	}

	s, ok := e.strategies[lang]
	if !ok {
		return Unsupported(lang)
	}
	return s.Run(ctx, source, stdin)
}

// Unsupported is the result for a language with no strategy.
func Unsupported(lang language.Language) Result {
	return Result{OutputLines: []string{fmt.Sprintf("%s execution not supported yet", lang.DisplayName())}}
}
