package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/fakeyudi/codepad/internal/diag"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/session"
)

var (
	errColor  = color.New(color.FgRed)
	okColor   = color.New(color.FgGreen)
	noteColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
	headColor = color.New(color.FgCyan, color.Bold)
)

// printResult writes one execution transcript.
func printResult(w io.Writer, r engine.Result) {
	c := color.New(color.Reset)
	if r.IsError {
		c = errColor
	}
	for _, line := range r.OutputLines {
		c.Fprintln(w, line)
	}
}

// printDiagnostic writes "path: line:col message" or an OK line.
func printDiagnostic(w io.Writer, path string, d *diag.Diagnostic) {
	if d == nil {
		fmt.Fprintf(w, "%s: %s\n", path, okColor.Sprint("no errors detected"))
		return
	}
	fmt.Fprintf(w, "%s: %s\n", path, errColor.Sprint(d.String()))
}

func printNotice(w io.Writer, n *session.Notice) {
	c := dimColor
	switch n.Level {
	case session.NoticeSuccess:
		c = okColor
	case session.NoticeWarning:
		c = noteColor
	case session.NoticeError:
		c = errColor
	}
	if n.Detail != "" {
		fmt.Fprintf(w, "%s: %s\n", c.Sprint(n.Title), n.Detail)
		return
	}
	c.Fprintln(w, n.Title)
}
