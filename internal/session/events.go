package session

import (
	"slices"
	"sync"

	"github.com/fakeyudi/codepad/internal/engine"
)

// EventKind identifies what changed.
type EventKind int

const (
	// EventSource fires when language or source changed; a diagnostic check
	// is now pending.
	EventSource EventKind = iota
	// EventDiagnostic fires when a settled check produced a (possibly nil)
	// diagnostic.
	EventDiagnostic
	// EventRequest fires when an assistant request starts or finishes.
	EventRequest
	// EventCorrection fires when the pending correction was set or cleared.
	EventCorrection
	// EventRunning fires before a run starts.
	EventRunning
	// EventRun fires with the result of a finished run.
	EventRun
	// EventNotice carries a dismissable user message.
	EventNotice
)

func (k EventKind) String() string {
	switch k {
	case EventSource:
		return "source"
	case EventDiagnostic:
		return "diagnostic"
	case EventRequest:
		return "request"
	case EventCorrection:
		return "correction"
	case EventRunning:
		return "running"
	case EventRun:
		return "run"
	case EventNotice:
		return "notice"
	}
	return "unknown"
}

// NoticeLevel grades a Notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a transient message for the user.
type Notice struct {
	Level  NoticeLevel
	Title  string
	Detail string
}

// Event is delivered to subscribers. Session is a snapshot taken when the
// event was published.
type Event struct {
	Kind    EventKind
	Session *Session
	Result  *engine.Result
	Notice  *Notice
}

// bus fans events out to subscribers. Handlers run on the publishing
// goroutine and must not block.
type bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func (b *bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *bus) publish(e Event) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
