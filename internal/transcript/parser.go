package transcript

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Parser deserializes a transcript file back into structured data.
type Parser interface {
	Parse(data []byte) (*Transcript, error)
}

// Detect picks the parser matching data: JSON when it starts with '{',
// Markdown otherwise.
func Detect(data []byte) Parser {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return &JSONParser{}
	}
	return &MarkdownParser{}
}

// JSONParser parses a JSON-encoded Transcript.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
	}
	return validate(&t)
}

// MarkdownParser extracts the embedded payload of a Markdown transcript.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Transcript, error) {
	content := string(data)

	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a valid codepad transcript: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid codepad transcript: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid codepad transcript: malformed data payload")
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a valid codepad transcript: corrupted base64 payload: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(jsonBytes, &t); err != nil {
		return nil, fmt.Errorf("not a valid codepad transcript: failed to parse embedded JSON: %w", err)
	}
	return validate(&t)
}

func validate(t *Transcript) (*Transcript, error) {
	if !t.Language.Valid() {
		return nil, fmt.Errorf("not a valid codepad transcript: unsupported language %q", t.Language)
	}
	return t, nil
}
