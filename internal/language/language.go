// Package language defines the fixed set of languages a playground session can
// be bound to, along with the canonical template and known-bad sample for each.
package language

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies a supported playground language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Java       Language = "java"
	CSharp     Language = "csharp"
	PHP        Language = "php"
	CPP        Language = "c++"
)

// ErrUnsupported is returned by Parse for identifiers outside the fixed set.
var ErrUnsupported = errors.New("unsupported language")

// ErrNoSample is returned by FaultySample when a language has no known-bad snippet.
var ErrNoSample = errors.New("no faulty sample for language")

// all lists the supported languages in menu order.
var all = []Language{JavaScript, TypeScript, Python, Java, CSharp, PHP, CPP}

// All returns the supported languages in menu order.
func All() []Language {
	out := make([]Language, len(all))
	copy(out, all)
	return out
}

// Parse resolves a user-supplied identifier. Matching is case-insensitive and
// accepts a few common aliases ("js", "ts", "py", "cs", "cpp").
func Parse(s string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "js", "node":
		return JavaScript, nil
	case "ts":
		return TypeScript, nil
	case "py", "python3":
		return Python, nil
	case "cs", "c#":
		return CSharp, nil
	case "cpp", "cxx":
		return CPP, nil
	}
	for _, l := range all {
		if string(l) == key {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

var extensions = map[string]Language{
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".py":   Python,
	".java": Java,
	".cs":   CSharp,
	".php":  PHP,
	".cpp":  CPP,
	".cc":   CPP,
	".cxx":  CPP,
	".hpp":  CPP,
}

// FromPath infers the language of a source file from its extension.
func FromPath(path string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := extensions[ext]; ok {
		return l, nil
	}
	return "", fmt.Errorf("%w: cannot infer language from %q", ErrUnsupported, path)
}

// DisplayName returns the human-readable name shown in menus and messages.
func (l Language) DisplayName() string {
	switch l {
	case JavaScript:
		return "JavaScript"
	case TypeScript:
		return "TypeScript"
	case Python:
		return "Python"
	case Java:
		return "Java"
	case CSharp:
		return "C#"
	case PHP:
		return "PHP"
	case CPP:
		return "C++"
	}
	return string(l)
}

// Version returns the runtime version the language is pinned to when code is
// sent to a remote executor.
func (l Language) Version() string {
	return versions[l]
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	_, ok := templates[l]
	return ok
}

var versions = map[Language]string{
	JavaScript: "18.15.0",
	TypeScript: "5.0.3",
	Python:     "3.10.0",
	Java:       "15.0.2",
	CSharp:     "6.12.0",
	PHP:        "8.2.3",
	CPP:        "10.2.0",
}
