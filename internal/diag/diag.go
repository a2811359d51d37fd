// Package diag models the marker set reported by an editor for a document and
// reduces it to the single actionable diagnostic a session displays.
package diag

import (
	"context"
	"fmt"
	"sort"

	"github.com/fakeyudi/codepad/internal/language"
)

// Severity defines the importance of a marker.
type Severity uint8

const (
	SevHint Severity = iota
	SevInfo
	SevWarning
	// SevError is the only actionable severity.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHint:
		return "HINT"
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Range is a 1-based line/column span inside a document.
type Range struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Marker is a single entry of an editor's diagnostic-marker set.
type Marker struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Range    Range    `json:"range"`
}

// Diagnostic is the one error signal a session shows for its current source.
type Diagnostic struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%d:%d %s", d.Line, d.Column, d.Message)
	}
	return d.Message
}

// Document is the handle a MarkerSource is queried with.
type Document struct {
	Language language.Language
	Text     string
}

// MarkerSource is the editor-side diagnostic service.
type MarkerSource interface {
	Markers(ctx context.Context, doc Document) ([]Marker, error)
}

// MarkerSourceFunc adapts a plain function to MarkerSource.
type MarkerSourceFunc func(ctx context.Context, doc Document) ([]Marker, error)

func (f MarkerSourceFunc) Markers(ctx context.Context, doc Document) ([]Marker, error) {
	return f(ctx, doc)
}

// Select picks the diagnostic for a marker set: error-severity markers only,
// ordered by start position with the reported order breaking ties. Returns nil
// when no error marker exists.
func Select(markers []Marker) *Diagnostic {
	var errs []Marker
	for _, m := range markers {
		if m.Severity == SevError {
			errs = append(errs, m)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool {
		ri, rj := errs[i].Range, errs[j].Range
		if ri.StartLine != rj.StartLine {
			return ri.StartLine < rj.StartLine
		}
		return ri.StartColumn < rj.StartColumn
	})
	first := errs[0]
	return &Diagnostic{
		Message:  first.Message,
		Severity: first.Severity,
		Line:     first.Range.StartLine,
		Column:   first.Range.StartColumn,
	}
}
