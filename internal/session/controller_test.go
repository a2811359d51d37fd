package session_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/session"
)

const fixedPython = `# This has an indentation error
def calculate_sum(a, b):
    result = a + b
    print("The sum is:", result)
    return result

calculate_sum(5, 10)`

// fakeAssistant answers with canned text. When gate is non-nil every call
// blocks until it is closed.
type fakeAssistant struct {
	mu     sync.Mutex
	reply  string
	err    error
	gate   chan struct{}
	errMsg []string
	calls  int
}

func (f *fakeAssistant) answer(ctx context.Context, source string) (assist.Suggestion, error) {
	f.mu.Lock()
	f.calls++
	gate, reply, err := f.gate, f.reply, f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return assist.Suggestion{}, ctx.Err()
		}
	}
	if err != nil {
		return assist.Suggestion{}, err
	}
	text := assist.StripFences(reply)
	return assist.Suggestion{Text: text, Unchanged: text == assist.StripFences(source)}, nil
}

func (f *fakeAssistant) RequestErrorCorrection(ctx context.Context, source, errMsg string, _ language.Language) (assist.Suggestion, error) {
	f.mu.Lock()
	f.errMsg = append(f.errMsg, errMsg)
	f.mu.Unlock()
	return f.answer(ctx, source)
}

func (f *fakeAssistant) RequestOptimization(ctx context.Context, source string, _ language.Language) (assist.Suggestion, error) {
	return f.answer(ctx, source)
}

func (f *fakeAssistant) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingRunner struct{ n int }

func (r *countingRunner) Run(_ context.Context, _ language.Language, _, _ string) engine.Result {
	r.n++
	return engine.Result{OutputLines: []string{fmt.Sprintf("run %d", r.n)}, Timestamp: time.Now()}
}

func newController(t testing.TB, sess *session.Session, opts session.Options) *session.Controller {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	c := session.NewController(sess, opts)
	t.Cleanup(c.Close)
	return c
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func settled(c *session.Controller) func() bool {
	return func() bool { return !c.Checking() }
}

// Feature: codepad, Property 2: switching language resets source and clears derived state
func TestSwitchLanguageResets(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := rapid.SampledFrom(language.All()).Draw(rt, "from")
		to := rapid.SampledFrom(language.All()).Draw(rt, "to")
		edit := rapid.String().Draw(rt, "edit")

		fa := &fakeAssistant{reply: "proposal"}
		c := session.NewController(session.New(from), session.Options{
			Assistant: fa,
			Debounce:  time.Hour,
		})
		defer c.Close()

		c.Edit(edit)
		if _, err := c.RequestOptimization(context.Background()); err != nil {
			rt.Fatalf("RequestOptimization: %v", err)
		}
		if c.Snapshot().Pending == nil {
			rt.Fatalf("expected a pending correction before switching")
		}

		if err := c.SwitchLanguage(to); err != nil {
			rt.Fatalf("SwitchLanguage: %v", err)
		}
		s := c.Snapshot()
		if s.Language != to || s.Source != language.Template(to) {
			rt.Fatalf("got (%s, %q), want template of %s", s.Language, s.Source, to)
		}
		if s.Diagnostic != nil || s.Pending != nil {
			rt.Fatalf("derived state survived switch: diagnostic=%v pending=%v", s.Diagnostic, s.Pending)
		}
	})
}

func TestSwitchLanguageRejectsUnknown(t *testing.T) {
	c := newController(t, nil, session.Options{})
	err := c.SwitchLanguage(language.Language("cobol"))
	require.ErrorIs(t, err, language.ErrUnsupported)
	assert.Equal(t, language.JavaScript, c.Snapshot().Language)
}

func TestHistoryKeepsTenMostRecent(t *testing.T) {
	c := newController(t, nil, session.Options{Runner: &countingRunner{}})
	for i := 0; i < 11; i++ {
		c.Run(context.Background(), "")
	}
	h := c.Snapshot().History
	require.Len(t, h, session.MaxHistory)
	assert.Equal(t, []string{"run 11"}, h[0].OutputLines)
	assert.Equal(t, []string{"run 2"}, h[len(h)-1].OutputLines)
	for _, r := range h {
		assert.NotEqual(t, []string{"run 1"}, r.OutputLines)
	}
}

// Feature: codepad, Property 3: history is bounded and newest first
func TestHistoryPushProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "runs")
		var h session.History
		for i := 1; i <= n; i++ {
			h = h.Push(engine.Result{OutputLines: []string{fmt.Sprint(i)}})
			if len(h) > session.MaxHistory {
				t.Fatalf("history grew to %d", len(h))
			}
		}
		for i, r := range h {
			if want := fmt.Sprint(n - i); r.OutputLines[0] != want {
				t.Fatalf("h[%d] = %s, want %s", i, r.OutputLines[0], want)
			}
		}
	})
}

func TestRunUsesCurrentSource(t *testing.T) {
	c := newController(t, session.New(language.Python), session.Options{})
	c.Edit(`print("hi")`)
	res := c.Run(context.Background(), "")
	assert.Equal(t, []string{"hi"}, res.OutputLines)
	assert.False(t, res.IsError)
}

func TestDebounceEvaluatesLastEditOnly(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	markers := diag.MarkerSourceFunc(func(_ context.Context, doc diag.Document) ([]diag.Marker, error) {
		mu.Lock()
		texts = append(texts, doc.Text)
		mu.Unlock()
		return []diag.Marker{{Severity: diag.SevError, Message: "bad " + doc.Text, Range: diag.Range{StartLine: 1, StartColumn: 1}}}, nil
	})
	c := newController(t, nil, session.Options{Markers: markers, Debounce: 50 * time.Millisecond})
	for _, s := range []string{"a", "ab", "abc"} {
		c.Edit(s)
	}
	eventually(t, func() bool { return c.Snapshot().Diagnostic != nil }, "diagnostic")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"abc"}, texts)
	assert.Equal(t, "bad abc", c.Snapshot().Diagnostic.Message)
}

func TestEditClearsDiagnostic(t *testing.T) {
	c := newController(t, session.New(language.Java), session.Options{})
	require.NoError(t, c.LoadFaultySample())
	eventually(t, func() bool { return c.Snapshot().Diagnostic != nil }, "diagnostic on faulty sample")

	c.Edit(language.Template(language.Java))
	assert.Nil(t, c.Snapshot().Diagnostic)
	assert.True(t, c.Checking())
	eventually(t, settled(c), "check to settle")
	assert.Nil(t, c.Snapshot().Diagnostic)
}

func TestStaleCorrectionIsDiscarded(t *testing.T) {
	fa := &fakeAssistant{reply: "late", gate: make(chan struct{})}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	done := make(chan error, 1)
	go func() {
		_, err := c.RequestOptimization(context.Background())
		done <- err
	}()
	eventually(t, c.Busy, "request in flight")

	c.Edit("x = 2")
	close(fa.gate)

	require.ErrorIs(t, <-done, session.ErrStale)
	s := c.Snapshot()
	assert.Nil(t, s.Pending)
	assert.Equal(t, "x = 2", s.Source)
	assert.False(t, c.Busy())
}

func TestEditDropsPendingErrorCorrection(t *testing.T) {
	fa := &fakeAssistant{reply: "print('from assistant')"}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	require.NoError(t, c.LoadFaultySample())
	eventually(t, func() bool {
		return !c.Checking() && c.Snapshot().Diagnostic != nil
	}, "diagnostic for faulty sample")
	_, err := c.RequestErrorCorrection(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c.Snapshot().Pending)

	edited := "if x:\n    print(2)\n    print(3)"
	c.Edit(edited)
	assert.Nil(t, c.Snapshot().Pending)
	eventually(t, settled(c), "check of edited source")

	require.ErrorIs(t, c.ApplyCorrection(), session.ErrNoPendingCorrection)
	assert.Equal(t, edited, c.Snapshot().Source)
}

func TestEditKeepsPendingOptimization(t *testing.T) {
	fa := &fakeAssistant{reply: "print('tidy')"}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	_, err := c.RequestOptimization(context.Background())
	require.NoError(t, err)
	c.Edit("print('mine')")

	p := c.Snapshot().Pending
	require.NotNil(t, p)
	assert.Equal(t, assist.ModeOptimization, p.Mode)
}

func TestApplyAndDiscardRequirePending(t *testing.T) {
	c := newController(t, nil, session.Options{})
	require.ErrorIs(t, c.ApplyCorrection(), session.ErrNoPendingCorrection)
	require.ErrorIs(t, c.DiscardCorrection(), session.ErrNoPendingCorrection)
}

func TestDiscardCorrection(t *testing.T) {
	fa := &fakeAssistant{reply: "```python\nprint('tidy')\n```"}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})
	before := c.Snapshot().Source

	_, err := c.RequestOptimization(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c.Snapshot().Pending)
	assert.Equal(t, "print('tidy')", c.Snapshot().Pending.Text)

	require.NoError(t, c.DiscardCorrection())
	s := c.Snapshot()
	assert.Nil(t, s.Pending)
	assert.Equal(t, before, s.Source)
}

func TestRequestErrorCorrectionNeedsDiagnostic(t *testing.T) {
	c := newController(t, session.New(language.Python), session.Options{Assistant: &fakeAssistant{reply: "x"}})
	eventually(t, settled(c), "initial check")
	_, err := c.RequestErrorCorrection(context.Background())
	require.ErrorIs(t, err, session.ErrNoDiagnostic)
}

func TestMissingAssistant(t *testing.T) {
	c := newController(t, nil, session.Options{})
	var notices []session.Notice
	unsubscribe := c.Subscribe(func(e session.Event) {
		if e.Kind == session.EventNotice {
			notices = append(notices, *e.Notice)
		}
	})
	defer unsubscribe()

	_, err := c.RequestOptimization(context.Background())
	require.ErrorIs(t, err, session.ErrNoAssistant)
	require.Len(t, notices, 1)
	assert.Equal(t, session.NoticeWarning, notices[0].Level)
}

func TestPipelineFailureBecomesNotice(t *testing.T) {
	fa := &fakeAssistant{err: &assist.ContentBlockedError{Reason: "SAFETY"}}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	var (
		mu      sync.Mutex
		notices []session.Notice
	)
	unsubscribe := c.Subscribe(func(e session.Event) {
		if e.Kind == session.EventNotice {
			mu.Lock()
			notices = append(notices, *e.Notice)
			mu.Unlock()
		}
	})

	_, err := c.RequestOptimization(context.Background())
	var blocked *assist.ContentBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Nil(t, c.Snapshot().Pending)

	mu.Lock()
	require.Len(t, notices, 1)
	assert.Equal(t, session.NoticeError, notices[0].Level)
	assert.Contains(t, notices[0].Title, "content policy")
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	_, _ = c.RequestOptimization(context.Background())
	mu.Lock()
	assert.Len(t, notices, 1)
	mu.Unlock()
}

func TestUnchangedOptimizationStillPending(t *testing.T) {
	tmpl := language.Template(language.Python)
	fa := &fakeAssistant{reply: "```python\n" + tmpl + "\n```"}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	var titles []string
	c.Subscribe(func(e session.Event) {
		if e.Kind == session.EventNotice {
			titles = append(titles, e.Notice.Title)
		}
	})

	s, err := c.RequestOptimization(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Unchanged)
	p := c.Snapshot().Pending
	require.NotNil(t, p)
	assert.Equal(t, tmpl, p.Text)
	assert.True(t, p.Unchanged)
	assert.Equal(t, []string{"Code is already optimized"}, titles)
}

func TestLoadFaultySampleWithoutSample(t *testing.T) {
	c := newController(t, session.New(language.PHP), session.Options{})
	err := c.LoadFaultySample()
	require.ErrorIs(t, err, language.ErrNoSample)
	assert.Equal(t, language.Template(language.PHP), c.Snapshot().Source)
}

func TestFaultySampleCorrectionFlow(t *testing.T) {
	fa := &fakeAssistant{reply: "```python\n" + fixedPython + "\n```"}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa})

	require.NoError(t, c.LoadFaultySample())
	original := c.Snapshot().Source
	eventually(t, func() bool {
		return !c.Checking() && c.Snapshot().Diagnostic != nil
	}, "diagnostic for faulty sample")
	msg := c.Snapshot().Diagnostic.Message

	s, err := c.RequestErrorCorrection(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Unchanged)
	assert.Equal(t, []string{msg}, fa.errMsg)

	p := c.Snapshot().Pending
	require.NotNil(t, p)
	assert.NotEmpty(t, p.Text)
	assert.NotEqual(t, original, p.Text)
	assert.False(t, strings.Contains(p.Text, "```"))

	require.NoError(t, c.ApplyCorrection())
	after := c.Snapshot()
	assert.Equal(t, p.Text, after.Source)
	assert.Nil(t, after.Diagnostic)
	assert.Nil(t, after.Pending)

	eventually(t, settled(c), "check of corrected source")
	assert.Nil(t, c.Snapshot().Diagnostic)
}

func TestAutoCorrectOnNewDiagnostic(t *testing.T) {
	fa := &fakeAssistant{reply: fixedPython}
	c := newController(t, session.New(language.Python), session.Options{Assistant: fa, AutoCorrect: true})

	require.NoError(t, c.LoadFaultySample())
	eventually(t, func() bool { return c.Snapshot().Pending != nil }, "automatic correction")
	assert.Equal(t, fixedPython, c.Snapshot().Pending.Text)
	assert.Equal(t, 1, fa.Calls())
}

func TestCloseAbandonsAutoCorrection(t *testing.T) {
	fa := &fakeAssistant{reply: fixedPython, gate: make(chan struct{})}
	c := session.NewController(session.New(language.Python), session.Options{
		Assistant:   fa,
		AutoCorrect: true,
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, c.LoadFaultySample())
	eventually(t, c.Busy, "automatic correction in flight")

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on in-flight request")
	}
	assert.False(t, c.Busy())
}
