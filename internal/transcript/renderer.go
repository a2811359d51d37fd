package transcript

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Formats accepted by ForFormat.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Renderer serializes a Transcript to bytes.
type Renderer interface {
	Render(t *Transcript) ([]byte, error)
}

// ForFormat returns the renderer for format.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return &MarkdownRenderer{}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want markdown or json)", format)
}

// JSONRenderer renders a Transcript as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(t *Transcript) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

const (
	versionSentinel = "<!-- codepad-transcript-version: 1 -->"
	dataPrefix      = "<!-- codepad-data: "
	dataSuffix      = " -->"
)

// MarkdownRenderer renders a Transcript as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(t *Transcript) ([]byte, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# codepad · %s · %s\n\n",
		t.Language.DisplayName(),
		t.ExportedAt.Format("2006-01-02 15:04:05 MST"),
	)

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Session: %s\n", t.SessionID)
	if t.Version != "" {
		fmt.Fprintf(&sb, "- Runtime: %s %s\n", t.Language, t.Version)
	}
	fmt.Fprintf(&sb, "- Runs: %d\n\n", len(t.Runs))

	sb.WriteString("## Source\n\n")
	writeFenced(&sb, string(t.Language), t.Source)
	sb.WriteString("\n")

	sb.WriteString("## Diagnostic\n\n")
	if t.Diagnostic == nil {
		sb.WriteString("_No errors detected._\n")
	} else {
		fmt.Fprintf(&sb, "- %s\n", t.Diagnostic)
	}
	sb.WriteString("\n")

	sb.WriteString("## Runs\n\n")
	if len(t.Runs) == 0 {
		sb.WriteString("_No runs recorded._\n\n")
	}
	for i, run := range t.Runs {
		status := "ok"
		if run.IsError {
			status = "error"
		}
		fmt.Fprintf(&sb, "### %d. %s (%s)\n\n", i+1, run.Timestamp.Format("2006-01-02 15:04:05"), status)
		writeFenced(&sb, "text", strings.Join(run.OutputLines, "\n"))
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// writeFenced writes body in a code fence long enough not to collide with
// any backtick run inside it.
func writeFenced(sb *strings.Builder, tag, body string) {
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	sb.WriteString(fence + tag + "\n")
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence + "\n")
}
