// Package watcher turns a stream of source edits into settled diagnostic
// evaluations. Every edit restarts a debounce timer; only the text that stays
// unchanged for the whole interval is ever checked.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fakeyudi/codepad/internal/diag"
)

// DefaultDelay is the settle interval used when Options.Delay is zero.
const DefaultDelay = 800 * time.Millisecond

// Result is published once per completed debounce cycle.
type Result struct {
	// Generation echoes the value passed to Observe for the evaluated text.
	Generation uint64
	// Diagnostic is nil when the text has no error-severity marker.
	Diagnostic *diag.Diagnostic
}

// Options tunes a Watcher.
type Options struct {
	Delay   time.Duration
	Timeout time.Duration // marker query bound; defaults to 5s
	Logger  *slog.Logger
}

// Watcher debounces diagnostic evaluation for one document.
type Watcher struct {
	source  diag.MarkerSource
	publish func(Result)
	delay   time.Duration
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	checking bool
	closed   bool
}

// New returns a Watcher that queries source and hands each settled result to
// publish. publish runs on the timer goroutine.
func New(source diag.MarkerSource, publish func(Result), opts Options) *Watcher {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		source:  source,
		publish: publish,
		delay:   opts.Delay,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Observe arms a new debounce cycle for doc and cancels the pending one.
func (w *Watcher) Observe(doc diag.Document, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.checking = true
	w.timer = time.AfterFunc(w.delay, func() { w.evaluate(doc, gen, seq) })
}

// Checking reports whether a cycle is armed or its query is still running.
// Consumers hide diagnostics and correction UI while it is true.
func (w *Watcher) Checking() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checking
}

// Cancel drops the pending cycle without publishing anything.
func (w *Watcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.seq++
	w.checking = false
}

// Close cancels any pending cycle and makes further Observe calls no-ops.
func (w *Watcher) Close() {
	w.Cancel()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *Watcher) current(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.seq == seq
}

func (w *Watcher) evaluate(doc diag.Document, gen, seq uint64) {
	if !w.current(seq) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	d := Evaluate(ctx, w.source, doc, w.logger)

	w.mu.Lock()
	if w.closed || w.seq != seq {
		w.mu.Unlock()
		w.logger.Debug("dropping superseded evaluation", "gen", gen)
		return
	}
	w.checking = false
	w.mu.Unlock()

	w.publish(Result{Generation: gen, Diagnostic: d})
}

// Evaluate queries source once and selects the diagnostic. A failing or
// panicking source yields nil: marker failures never reach the session.
func Evaluate(ctx context.Context, source diag.MarkerSource, doc diag.Document, logger *slog.Logger) (d *diag.Diagnostic) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("marker query panicked", "lang", doc.Language, "err", fmt.Sprint(r))
			d = nil
		}
	}()
	markers, err := source.Markers(ctx, doc)
	if err != nil {
		logger.Debug("marker query failed", "lang", doc.Language, "err", err)
		return nil
	}
	return diag.Select(markers)
}
