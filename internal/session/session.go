package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
)

// MaxHistory bounds the number of runs kept per session.
const MaxHistory = 10

// Session is the single live unit of work: a language, its source, and the
// state derived from them.
type Session struct {
	ID        string            `json:"id"`
	StartTime time.Time         `json:"start_time"`
	Language  language.Language `json:"language"`
	Source    string            `json:"source"`
	// Diagnostic is derived from the current Source only.
	Diagnostic *diag.Diagnostic `json:"diagnostic,omitempty"`
	// Pending is an assistant proposal awaiting apply or discard.
	Pending *Correction `json:"pending,omitempty"`
	History History     `json:"history"`
}

// Correction is a pending replacement for the session source.
type Correction struct {
	Mode assist.Mode `json:"mode"`
	Text string      `json:"text"`
	// Unchanged marks a proposal identical to the source it was made for.
	Unchanged bool `json:"unchanged,omitempty"`
}

// New returns a session bound to lang with its template loaded.
func New(lang language.Language) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now().UTC().Truncate(time.Second),
		Language:  lang,
		Source:    language.Template(lang),
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	c := *s
	if s.Diagnostic != nil {
		d := *s.Diagnostic
		c.Diagnostic = &d
	}
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	c.History = make(History, len(s.History))
	for i, r := range s.History {
		r.OutputLines = append([]string(nil), r.OutputLines...)
		c.History[i] = r
	}
	return &c
}

// History holds past runs, most recent first.
type History []engine.Result

// Push prepends r and evicts the oldest entries beyond MaxHistory.
func (h History) Push(r engine.Result) History {
	out := make(History, 0, min(len(h)+1, MaxHistory))
	out = append(out, r)
	for _, old := range h {
		if len(out) == MaxHistory {
			break
		}
		out = append(out, old)
	}
	return out
}
