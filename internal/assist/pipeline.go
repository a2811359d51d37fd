// Package assist builds correction and optimization prompts, calls the remote
// assistant, and sanitizes its reply into fence-free source text.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/codepad/internal/language"
)

// Mode distinguishes the two pipeline entry points.
type Mode int

const (
	ModeCorrection Mode = iota
	ModeOptimization
)

func (m Mode) String() string {
	if m == ModeOptimization {
		return "optimization"
	}
	return "correction"
}

// Suggestion is a sanitized, non-empty replacement for the session source.
type Suggestion struct {
	Text string
	// Unchanged is set when Text equals the trimmed input: a cosmetic-only
	// result that is still delivered.
	Unchanged bool
}

// Pipeline turns (source, language[, error]) into a Suggestion. It holds no
// per-call state, so concurrent calls complete independently.
type Pipeline struct {
	gen    Generator
	logger *slog.Logger
}

// NewPipeline returns a Pipeline backed by gen.
func NewPipeline(gen Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{gen: gen, logger: logger}
}

// RequestErrorCorrection asks for a version of source that fixes errMsg.
func (p *Pipeline) RequestErrorCorrection(ctx context.Context, source, errMsg string, lang language.Language) (Suggestion, error) {
	return p.complete(ctx, ModeCorrection, lang, source, ErrorCorrectionPrompt(source, errMsg, lang))
}

// RequestOptimization asks for a cosmetic rewrite of source.
func (p *Pipeline) RequestOptimization(ctx context.Context, source string, lang language.Language) (Suggestion, error) {
	return p.complete(ctx, ModeOptimization, lang, source, OptimizationPrompt(source, lang))
}

func (p *Pipeline) complete(ctx context.Context, mode Mode, lang language.Language, source, prompt string) (Suggestion, error) {
	start := time.Now()
	raw, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("assistant call failed", "op", mode.String(), "lang", lang, "err", err)
		return Suggestion{}, fmt.Errorf("%s: %w", mode, err)
	}
	text := StripFences(raw)
	if text == "" {
		return Suggestion{}, fmt.Errorf("%s: %w", mode, ErrEmptyResult)
	}
	s := Suggestion{Text: text, Unchanged: text == StripFences(source)}
	p.logger.Info("suggestion ready", "op", mode.String(), "lang", lang,
		"lines", strings.Count(text, "\n")+1, "unchanged", s.Unchanged, "elapsed", time.Since(start))
	return s, nil
}

// State is the lifecycle position of one Request.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrInvalidTransition is returned when a Request is moved out of order.
var ErrInvalidTransition = errors.New("invalid request state transition")

// Request tracks one pipeline call: idle -> generating -> ready | failed.
// A ready request returns to idle when its suggestion is applied or
// discarded; failed is terminal.
type Request struct {
	ID         string
	Mode       Mode
	Generation uint64
	State      State
	Suggestion Suggestion
	Err        error
}

// NewRequest returns an idle request for the session generation gen.
func NewRequest(mode Mode, gen uint64) *Request {
	return &Request{ID: uuid.NewString(), Mode: mode, Generation: gen}
}

// Start moves idle -> generating.
func (r *Request) Start() error {
	if r.State != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, r.State)
	}
	r.State = StateGenerating
	return nil
}

// Resolve moves generating -> ready or failed depending on err.
func (r *Request) Resolve(s Suggestion, err error) error {
	if r.State != StateGenerating {
		return fmt.Errorf("%w: resolve from %s", ErrInvalidTransition, r.State)
	}
	if err != nil {
		r.State = StateFailed
		r.Err = err
		return nil
	}
	r.State = StateReady
	r.Suggestion = s
	return nil
}

// Settle moves ready -> idle after the suggestion was applied or discarded.
func (r *Request) Settle() error {
	if r.State != StateReady {
		return fmt.Errorf("%w: settle from %s", ErrInvalidTransition, r.State)
	}
	r.State = StateIdle
	r.Suggestion = Suggestion{}
	return nil
}
