package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/language"
)

// recordingSource reports one error marker echoing the document text.
type recordingSource struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSource) Markers(_ context.Context, doc diag.Document) ([]diag.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, doc.Text)
	return []diag.Marker{{Severity: diag.SevError, Message: doc.Text, Range: diag.Range{StartLine: 1}}}, nil
}

func (s *recordingSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func TestDebounceEvaluatesOnlyLastEdit(t *testing.T) {
	src := &recordingSource{}
	results := make(chan Result, 10)
	w := New(src, func(r Result) { results <- r }, Options{Delay: 40 * time.Millisecond})
	defer w.Close()

	for i, text := range []string{"a", "ab", "abc", "abcd"} {
		w.Observe(diag.Document{Language: language.Python, Text: text}, uint64(i+1))
	}
	if !w.Checking() {
		t.Fatal("expected Checking() while a cycle is armed")
	}

	select {
	case r := <-results:
		if r.Generation != 4 {
			t.Errorf("generation: got %d, want 4", r.Generation)
		}
		if r.Diagnostic == nil || r.Diagnostic.Message != "abcd" {
			t.Errorf("diagnostic: got %+v, want message %q", r.Diagnostic, "abcd")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for evaluation")
	}

	// No further evaluations may follow.
	select {
	case r := <-results:
		t.Fatalf("unexpected extra evaluation: %+v", r)
	case <-time.After(150 * time.Millisecond):
	}
	if calls := src.Calls(); len(calls) != 1 || calls[0] != "abcd" {
		t.Errorf("marker queries: got %v, want [abcd]", calls)
	}
	if w.Checking() {
		t.Error("Checking() should be false after the query resolved")
	}
}

func TestCancelSuppressesPendingCycle(t *testing.T) {
	var published atomic.Int32
	w := New(&recordingSource{}, func(Result) { published.Add(1) }, Options{Delay: 20 * time.Millisecond})
	w.Observe(diag.Document{Language: language.Java, Text: "x"}, 1)
	w.Cancel()
	time.Sleep(80 * time.Millisecond)
	if n := published.Load(); n != 0 {
		t.Fatalf("expected no publication after Cancel, got %d", n)
	}
	if w.Checking() {
		t.Error("Checking() should be false after Cancel")
	}
}

func TestEvaluateDegradesOnFailure(t *testing.T) {
	failing := diag.MarkerSourceFunc(func(context.Context, diag.Document) ([]diag.Marker, error) {
		return nil, errors.New("marker service unavailable")
	})
	if d := Evaluate(context.Background(), failing, diag.Document{}, nil); d != nil {
		t.Fatalf("expected nil diagnostic on failure, got %+v", d)
	}

	panicking := diag.MarkerSourceFunc(func(context.Context, diag.Document) ([]diag.Marker, error) {
		panic("boom")
	})
	if d := Evaluate(context.Background(), panicking, diag.Document{}, nil); d != nil {
		t.Fatalf("expected nil diagnostic on panic, got %+v", d)
	}
}

func TestObserveAfterCloseIsNoop(t *testing.T) {
	var published atomic.Int32
	w := New(&recordingSource{}, func(Result) { published.Add(1) }, Options{Delay: 10 * time.Millisecond})
	w.Close()
	w.Observe(diag.Document{Text: "x"}, 1)
	time.Sleep(50 * time.Millisecond)
	if published.Load() != 0 {
		t.Fatal("closed watcher published a result")
	}
}
