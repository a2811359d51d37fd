package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/watcher"
)

var (
	// ErrNoPendingCorrection is returned by ApplyCorrection and
	// DiscardCorrection when nothing is pending.
	ErrNoPendingCorrection = errors.New("no pending correction")
	// ErrNoDiagnostic is returned by RequestErrorCorrection when the source
	// has no current diagnostic.
	ErrNoDiagnostic = errors.New("no diagnostic to correct")
	// ErrNoAssistant is returned when no assistant was configured.
	ErrNoAssistant = errors.New("assistant not configured")
	// ErrStale is returned by the request methods when the session changed
	// while the assistant was working. The result was dropped and no notice
	// was published.
	ErrStale = errors.New("result superseded by a newer edit")
)

// Assistant produces corrections. *assist.Pipeline implements it.
type Assistant interface {
	RequestErrorCorrection(ctx context.Context, source, errMsg string, lang language.Language) (assist.Suggestion, error)
	RequestOptimization(ctx context.Context, source string, lang language.Language) (assist.Suggestion, error)
}

// Runner executes source. *engine.Engine implements it.
type Runner interface {
	Run(ctx context.Context, lang language.Language, source, stdin string) engine.Result
}

// Options wires a Controller to its collaborators.
type Options struct {
	Markers diag.MarkerSource
	// Assistant may be nil; request methods then fail with ErrNoAssistant.
	Assistant Assistant
	Runner    Runner
	Debounce  time.Duration
	// AutoCorrect starts an error correction whenever a new diagnostic
	// settles.
	AutoCorrect bool
	Logger      *slog.Logger
}

// Controller owns the live Session and sequences edits, diagnostics, runs,
// and assistant requests. All methods are safe for concurrent use.
//
// Every change to language or source bumps a generation counter. Diagnostic
// results and assistant replies carry the generation they were started for
// and are dropped when it is no longer current.
type Controller struct {
	assistant   Assistant
	runner      Runner
	autoCorrect bool
	logger      *slog.Logger
	watcher     *watcher.Watcher
	events      bus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	sess       *Session
	gen        uint64
	inflight   map[string]*assist.Request
	pendingReq *assist.Request
}

// NewController takes ownership of sess (a fresh session when nil) and starts
// checking its source.
func NewController(sess *Session, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if sess == nil {
		sess = New(language.JavaScript)
	}
	if opts.Markers == nil {
		opts.Markers = diag.Linter{}
	}
	if opts.Runner == nil {
		opts.Runner = engine.New(engine.Options{Logger: opts.Logger})
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		assistant:   opts.Assistant,
		runner:      opts.Runner,
		autoCorrect: opts.AutoCorrect,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		sess:        sess,
		gen:         1,
		inflight:    make(map[string]*assist.Request),
	}
	c.watcher = watcher.New(opts.Markers, c.onDiagnostic, watcher.Options{
		Delay:  opts.Debounce,
		Logger: opts.Logger,
	})
	c.watcher.Observe(diag.Document{Language: sess.Language, Text: sess.Source}, c.gen)
	return c
}

// Subscribe registers fn for every event and returns its unsubscribe func.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.events.subscribe(fn)
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone()
}

// Generation returns the current source generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Checking reports whether a diagnostic check is pending for the current
// source. Diagnostic and correction UI should be hidden while it is true.
func (c *Controller) Checking() bool {
	return c.watcher.Checking()
}

// Busy reports whether an assistant request is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// Close stops the watcher, abandons in-flight requests and waits for
// background work to finish.
func (c *Controller) Close() {
	c.watcher.Close()
	c.cancel()
	c.wg.Wait()
}

// SwitchLanguage rebinds the session to lang, resets the source to the
// language template and clears the diagnostic and any pending correction.
func (c *Controller) SwitchLanguage(lang language.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %q", language.ErrUnsupported, lang)
	}
	c.mu.Lock()
	c.sess.Language = lang
	c.sess.Source = language.Template(lang)
	c.sess.Diagnostic = nil
	c.clearPendingLocked()
	doc, gen := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Info("language switched", "lang", lang, "gen", gen)
	c.watcher.Observe(doc, gen)
	c.publish(Event{Kind: EventSource})
	c.publish(Event{Kind: EventCorrection})
	return nil
}

// Edit replaces the source with text typed by the user. A pending error
// correction was made for the previous text and is dropped; a pending
// optimization is kept until applied or discarded.
func (c *Controller) Edit(text string) {
	c.mu.Lock()
	if text == c.sess.Source {
		c.mu.Unlock()
		return
	}
	c.sess.Source = text
	c.sess.Diagnostic = nil
	dropped := c.sess.Pending != nil && c.sess.Pending.Mode == assist.ModeCorrection
	if dropped {
		c.clearPendingLocked()
	}
	doc, gen := c.bumpLocked()
	c.mu.Unlock()

	c.watcher.Observe(doc, gen)
	c.publish(Event{Kind: EventSource})
	if dropped {
		c.publish(Event{Kind: EventCorrection})
	}
}

// LoadFaultySample replaces the source with the language's known-bad
// snippet.
func (c *Controller) LoadFaultySample() error {
	c.mu.Lock()
	lang := c.sess.Language
	c.mu.Unlock()

	sample, err := language.FaultySample(lang)
	if err != nil {
		c.notify(NoticeWarning, "No sample available", fmt.Sprintf("There is no faulty sample for %s.", lang.DisplayName()))
		return fmt.Errorf("%s: %w", lang, err)
	}
	c.Edit(sample)
	c.notify(NoticeInfo, "Error sample loaded", "Wait a moment for the error to be detected.")
	return nil
}

// ApplyCorrection moves the pending correction into the source and clears
// both the diagnostic and the pending correction in one step.
func (c *Controller) ApplyCorrection() error {
	c.mu.Lock()
	p := c.sess.Pending
	if p == nil {
		c.mu.Unlock()
		return ErrNoPendingCorrection
	}
	c.sess.Source = p.Text
	c.sess.Diagnostic = nil
	c.clearPendingLocked()
	doc, gen := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Info("correction applied", "op", p.Mode.String(), "gen", gen)
	c.watcher.Observe(doc, gen)
	c.publish(Event{Kind: EventSource})
	c.publish(Event{Kind: EventCorrection})
	c.notify(NoticeSuccess, "Code updated", "The suggested code has been applied.")
	return nil
}

// DiscardCorrection drops the pending correction.
func (c *Controller) DiscardCorrection() error {
	c.mu.Lock()
	if c.sess.Pending == nil {
		c.mu.Unlock()
		return ErrNoPendingCorrection
	}
	c.clearPendingLocked()
	c.mu.Unlock()

	c.publish(Event{Kind: EventCorrection})
	return nil
}

// Run executes the current source with stdin and records the result in the
// history.
func (c *Controller) Run(ctx context.Context, stdin string) engine.Result {
	c.mu.Lock()
	lang, src := c.sess.Language, c.sess.Source
	c.mu.Unlock()

	c.publish(Event{Kind: EventRunning})
	res := c.runner.Run(ctx, lang, src, stdin)

	c.mu.Lock()
	c.sess.History = c.sess.History.Push(res)
	c.mu.Unlock()

	c.publish(Event{Kind: EventRun, Result: &res})
	if res.IsError {
		c.notify(NoticeError, "Execution failed", "See the output panel for details.")
	}
	return res
}

// RequestErrorCorrection asks the assistant to fix the current diagnostic.
// On success the suggestion becomes the pending correction.
func (c *Controller) RequestErrorCorrection(ctx context.Context) (assist.Suggestion, error) {
	if c.assistant == nil {
		return assist.Suggestion{}, c.missingAssistant()
	}
	c.mu.Lock()
	if c.sess.Diagnostic == nil {
		c.mu.Unlock()
		return assist.Suggestion{}, ErrNoDiagnostic
	}
	lang, src, msg := c.sess.Language, c.sess.Source, c.sess.Diagnostic.Message
	req := c.startLocked(assist.ModeCorrection)
	c.mu.Unlock()

	c.publish(Event{Kind: EventRequest})
	s, err := c.assistant.RequestErrorCorrection(ctx, src, msg, lang)
	return c.finish(req, s, err)
}

// RequestOptimization asks the assistant for a cosmetic rewrite of the
// current source.
func (c *Controller) RequestOptimization(ctx context.Context) (assist.Suggestion, error) {
	if c.assistant == nil {
		return assist.Suggestion{}, c.missingAssistant()
	}
	c.mu.Lock()
	lang, src := c.sess.Language, c.sess.Source
	req := c.startLocked(assist.ModeOptimization)
	c.mu.Unlock()

	c.publish(Event{Kind: EventRequest})
	s, err := c.assistant.RequestOptimization(ctx, src, lang)
	return c.finish(req, s, err)
}

func (c *Controller) startLocked(mode assist.Mode) *assist.Request {
	req := assist.NewRequest(mode, c.gen)
	_ = req.Start()
	c.inflight[req.ID] = req
	c.logger.Debug("assistant request started", "op", mode.String(), "gen", c.gen, "lang", c.sess.Language)
	return req
}

func (c *Controller) finish(req *assist.Request, s assist.Suggestion, err error) (assist.Suggestion, error) {
	c.mu.Lock()
	delete(c.inflight, req.ID)
	_ = req.Resolve(s, err)
	stale := req.Generation != c.gen
	if stale {
		if err == nil {
			_ = req.Settle()
		}
		c.mu.Unlock()
		c.logger.Debug("dropping stale assistant result", "op", req.Mode.String(), "gen", req.Generation, "current", c.Generation())
		c.publish(Event{Kind: EventRequest})
		return assist.Suggestion{}, ErrStale
	}
	if err == nil {
		c.clearPendingLocked()
		c.sess.Pending = &Correction{Mode: req.Mode, Text: s.Text, Unchanged: s.Unchanged}
		c.pendingReq = req
	}
	c.mu.Unlock()

	c.publish(Event{Kind: EventRequest})
	if err != nil {
		title, detail := assist.Describe(err)
		c.notify(NoticeError, title, detail)
		return assist.Suggestion{}, err
	}
	c.publish(Event{Kind: EventCorrection})
	switch {
	case s.Unchanged && req.Mode == assist.ModeOptimization:
		c.notify(NoticeInfo, "Code is already optimized", "No functional changes were suggested.")
	case s.Unchanged:
		c.notify(NoticeInfo, "No changes suggested", "The assistant returned the code unchanged.")
	case req.Mode == assist.ModeOptimization:
		c.notify(NoticeSuccess, "Optimization complete", "Review the suggestion and apply it.")
	}
	return s, nil
}

func (c *Controller) onDiagnostic(res watcher.Result) {
	c.mu.Lock()
	if res.Generation != c.gen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale diagnostic", "gen", res.Generation)
		return
	}
	c.sess.Diagnostic = res.Diagnostic
	auto := c.autoCorrect && c.assistant != nil && res.Diagnostic != nil &&
		c.sess.Pending == nil && !c.correctingLocked()
	c.mu.Unlock()

	c.publish(Event{Kind: EventDiagnostic})
	if !auto {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.RequestErrorCorrection(c.ctx); err != nil && !errors.Is(err, ErrStale) {
			c.logger.Debug("auto correction failed", "err", err)
		}
	}()
}

func (c *Controller) correctingLocked() bool {
	for _, r := range c.inflight {
		if r.Mode == assist.ModeCorrection {
			return true
		}
	}
	return false
}

// bumpLocked advances the generation and returns the document to check.
func (c *Controller) bumpLocked() (diag.Document, uint64) {
	c.gen++
	return diag.Document{Language: c.sess.Language, Text: c.sess.Source}, c.gen
}

func (c *Controller) clearPendingLocked() {
	c.sess.Pending = nil
	if c.pendingReq != nil {
		_ = c.pendingReq.Settle()
		c.pendingReq = nil
	}
}

func (c *Controller) missingAssistant() error {
	c.notify(NoticeWarning, "Assistant unavailable", "Set the API key environment variable to enable corrections.")
	return ErrNoAssistant
}

func (c *Controller) notify(level NoticeLevel, title, detail string) {
	c.publish(Event{Kind: EventNotice, Notice: &Notice{Level: level, Title: title, Detail: detail}})
}

func (c *Controller) publish(e Event) {
	e.Session = c.Snapshot()
	c.events.publish(e)
}
