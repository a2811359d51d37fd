// Package transcript exports a session's source and run history to a file
// and reads it back.
package transcript

import (
	"time"

	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/session"
)

// Transcript is the complete, renderable record of a session.
type Transcript struct {
	SessionID  string            `json:"session_id"`
	StartTime  time.Time         `json:"start_time"`
	ExportedAt time.Time         `json:"exported_at"`
	Language   language.Language `json:"language"`
	Version    string            `json:"version"`
	Source     string            `json:"source"`
	Diagnostic *diag.Diagnostic  `json:"diagnostic,omitempty"`
	Runs       []engine.Result   `json:"runs"` // most recent first
}

// FromSession builds a Transcript from a session snapshot.
func FromSession(s *session.Session, exportedAt time.Time) *Transcript {
	runs := make([]engine.Result, len(s.History))
	copy(runs, s.History)
	var d *diag.Diagnostic
	if s.Diagnostic != nil {
		cp := *s.Diagnostic
		d = &cp
	}
	return &Transcript{
		SessionID:  s.ID,
		StartTime:  s.StartTime,
		ExportedAt: exportedAt,
		Language:   s.Language,
		Version:    s.Language.Version(),
		Source:     s.Source,
		Diagnostic: d,
		Runs:       runs,
	}
}

// Session rebuilds a session from the transcript. The pending correction is
// not part of a transcript and comes back empty.
func (t *Transcript) Session() *session.Session {
	var h session.History
	for i := len(t.Runs) - 1; i >= 0; i-- {
		h = h.Push(t.Runs[i])
	}
	return &session.Session{
		ID:         t.SessionID,
		StartTime:  t.StartTime,
		Language:   t.Language,
		Source:     t.Source,
		Diagnostic: t.Diagnostic,
		History:    h,
	}
}
