package diag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dop251/goja/parser"

	"github.com/fakeyudi/codepad/internal/language"
)

// Linter is a built-in MarkerSource for when no editor marker service is
// attached. JavaScript is checked with the goja parser; the other languages
// get lexical checks only (bracket balance, Python indentation, missing
// statement terminators).
type Linter struct{}

// Markers implements MarkerSource.
func (Linter) Markers(ctx context.Context, doc Document) ([]Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch doc.Language {
	case language.JavaScript:
		return jsMarkers(doc.Text), nil
	case language.TypeScript:
		return bracketMarkers(doc.Text, jsSyntax), nil
	case language.Python:
		return append(bracketMarkers(doc.Text, pySyntax), indentMarkers(doc.Text)...), nil
	case language.Java, language.CSharp, language.CPP:
		return append(bracketMarkers(doc.Text, cSyntax), terminatorMarkers(doc.Text)...), nil
	case language.PHP:
		return append(bracketMarkers(doc.Text, phpSyntax), terminatorMarkers(doc.Text)...), nil
	}
	return nil, nil
}

func jsMarkers(src string) []Marker {
	_, err := parser.ParseFile(nil, "", src, 0)
	if err == nil {
		return nil
	}
	var list parser.ErrorList
	if !errors.As(err, &list) {
		return []Marker{{Severity: SevError, Message: err.Error()}}
	}
	markers := make([]Marker, 0, len(list))
	for _, e := range list {
		pos := e.Position
		markers = append(markers, Marker{
			Severity: SevError,
			Message:  e.Message,
			Range:    Range{StartLine: pos.Line, StartColumn: pos.Column, EndLine: pos.Line, EndColumn: pos.Column + 1},
		})
	}
	return markers
}

// ── Bracket balance ───────────────────────────────────────────────────────────

type syntax struct {
	lineComments []string
	blockComment bool
	quotes       string
	triple       bool
}

var (
	jsSyntax  = syntax{lineComments: []string{"//"}, blockComment: true, quotes: "\"'`"}
	cSyntax   = syntax{lineComments: []string{"//"}, blockComment: true, quotes: "\"'"}
	phpSyntax = syntax{lineComments: []string{"//", "#"}, blockComment: true, quotes: "\"'"}
	pySyntax  = syntax{lineComments: []string{"#"}, quotes: "\"'", triple: true}
)

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

type opener struct {
	ch        rune
	line, col int
}

func bracketMarkers(src string, sx syntax) []Marker {
	runes := []rune(src)
	line, col := 1, 1
	i := 0
	advance := func() {
		if runes[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i++
	}
	hasAt := func(s string) bool {
		return strings.HasPrefix(string(runes[i:min(len(runes), i+len(s))]), s)
	}

	var stack []opener
	var markers []Marker

	for i < len(runes) {
		r := runes[i]

		if sx.blockComment && hasAt("/*") {
			for i < len(runes) && !hasAt("*/") {
				advance()
			}
			if i < len(runes) {
				advance()
				advance()
			}
			continue
		}
		isComment := false
		for _, lc := range sx.lineComments {
			if hasAt(lc) {
				isComment = true
				break
			}
		}
		if isComment {
			for i < len(runes) && runes[i] != '\n' {
				advance()
			}
			continue
		}

		if strings.ContainsRune(sx.quotes, r) {
			startLine, startCol := line, col
			delim := string(r)
			if sx.triple && hasAt(strings.Repeat(delim, 3)) {
				delim = strings.Repeat(delim, 3)
			}
			for range delim {
				advance()
			}
			closed := false
			for i < len(runes) {
				if runes[i] == '\\' && i+1 < len(runes) {
					advance()
					advance()
					continue
				}
				if hasAt(delim) {
					for range delim {
						advance()
					}
					closed = true
					break
				}
				if runes[i] == '\n' && len(delim) == 1 && delim != "`" {
					break
				}
				advance()
			}
			if !closed {
				markers = append(markers, Marker{
					Severity: SevError,
					Message:  "Unterminated string literal.",
					Range:    Range{StartLine: startLine, StartColumn: startCol, EndLine: line, EndColumn: col},
				})
			}
			continue
		}

		switch r {
		case '(', '[', '{':
			stack = append(stack, opener{ch: r, line: line, col: col})
		case ')', ']', '}':
			want := closers[r]
			if len(stack) == 0 || stack[len(stack)-1].ch != want {
				markers = append(markers, Marker{
					Severity: SevError,
					Message:  fmt.Sprintf("Unexpected '%c'.", r),
					Range:    Range{StartLine: line, StartColumn: col, EndLine: line, EndColumn: col + 1},
				})
			} else {
				stack = stack[:len(stack)-1]
			}
		}
		advance()
	}

	for _, o := range stack {
		markers = append(markers, Marker{
			Severity: SevError,
			Message:  fmt.Sprintf("'%c' was not closed.", o.ch),
			Range:    Range{StartLine: o.line, StartColumn: o.col, EndLine: o.line, EndColumn: o.col + 1},
		})
	}
	return markers
}

// ── Python indentation ────────────────────────────────────────────────────────

func indentMarkers(src string) []Marker {
	lines := strings.Split(src, "\n")
	stack := []int{0}
	expectIndent := false
	depth := 0
	lastLine := 0
	var markers []Marker

	mark := func(n, indent int, msg string) {
		markers = append(markers, Marker{
			Severity: SevError,
			Message:  msg,
			Range:    Range{StartLine: n, StartColumn: indent + 1, EndLine: n, EndColumn: indent + 2},
		})
	}

	for idx, raw := range lines {
		code := stripComment(raw, "#", "\"'")
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		n := idx + 1
		lastLine = n
		if depth > 0 {
			depth = max(0, depth+bracketDelta(code))
			continue
		}

		indent := indentWidth(raw)
		top := stack[len(stack)-1]
		switch {
		case expectIndent && indent > top:
			stack = append(stack, indent)
		case expectIndent:
			mark(n, indent, "expected an indented block")
			stack = popTo(stack, indent)
		case indent > top:
			mark(n, indent, "unexpected indent")
			stack = append(stack, indent)
		case indent < top:
			stack = popTo(stack, indent)
			if stack[len(stack)-1] != indent {
				mark(n, indent, "unindent does not match any outer indentation level")
				stack = append(stack, indent)
			}
		}

		expectIndent = strings.HasSuffix(trimmed, ":")
		depth = max(0, bracketDelta(code))
	}
	if expectIndent {
		mark(lastLine, 0, "expected an indented block")
	}
	return markers
}

func popTo(stack []int, indent int) []int {
	for len(stack) > 1 && stack[len(stack)-1] > indent {
		stack = stack[:len(stack)-1]
	}
	return stack
}

func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 8 - w%8
		default:
			return w
		}
	}
	return w
}

// bracketDelta counts opening minus closing brackets outside string literals.
func bracketDelta(code string) int {
	d := 0
	var quote rune
	escaped := false
	for _, r := range code {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

// stripComment drops everything from the first comment marker that is not
// inside a quoted literal.
func stripComment(line, marker, quotes string) string {
	var quote rune
	escaped := false
	for i, r := range line {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		if strings.ContainsRune(quotes, r) {
			quote = r
			continue
		}
		if strings.HasPrefix(line[i:], marker) {
			return line[:i]
		}
	}
	return line
}

// ── Statement terminators (C family, PHP) ─────────────────────────────────────

var blockKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "foreach": true, "while": true,
	"do": true, "switch": true, "try": true, "catch": true, "finally": true,
	"namespace": true, "class": true, "struct": true, "enum": true,
	"interface": true, "template": true, "case": true, "default": true,
	"function": true, "record": true,
}

var continuationPrefixes = []string{
	"{", ".", "+", "-", "*", "/", "?", ":", "&&", "||", ")", "<<", ">>", "=", ",", "->",
}

func terminatorMarkers(src string) []Marker {
	lines := strings.Split(src, "\n")
	code := make([]string, len(lines))
	inBlock := false
	for i, raw := range lines {
		c := strings.TrimSpace(stripComment(raw, "//", "\"'"))
		if inBlock {
			if end := strings.Index(c, "*/"); end >= 0 {
				inBlock = false
				c = strings.TrimSpace(c[end+2:])
			} else {
				c = ""
			}
		}
		if start := strings.Index(c, "/*"); start >= 0 {
			if end := strings.Index(c[start:], "*/"); end >= 0 {
				c = strings.TrimSpace(c[:start] + c[start+end+2:])
			} else {
				inBlock = true
				c = strings.TrimSpace(c[:start])
			}
		}
		code[i] = c
	}

	var markers []Marker
	parens := 0
	var braces braceStack
	prev := ""
	for i, c := range code {
		if c == "" {
			continue
		}
		inData := braces.data()
		braces = braces.scan(c, prev)
		prev = c
		parens += parenDelta(c)
		if parens < 0 {
			parens = 0
		}
		if inData || parens > 0 || !needsTerminator(c) {
			continue
		}
		if next := nextCode(code, i+1); next != "" && isContinuation(next) {
			continue
		}
		col := len([]rune(strings.TrimRight(lines[i], " \t"))) + 1
		markers = append(markers, Marker{
			Severity: SevError,
			Message:  "';' expected.",
			Range:    Range{StartLine: i + 1, StartColumn: col, EndLine: i + 1, EndColumn: col + 1},
		})
	}
	return markers
}

func needsTerminator(c string) bool {
	if strings.HasPrefix(c, "#") || strings.HasPrefix(c, "@") || strings.HasPrefix(c, "[") ||
		strings.HasPrefix(c, "<?") || strings.HasPrefix(c, "?>") {
		return false
	}
	for _, w := range strings.FieldsFunc(c, func(r rune) bool { return !isIdent(r) }) {
		if blockKeywords[w] {
			return false
		}
		// Only the leading modifiers and keyword matter.
		if w != "public" && w != "private" && w != "protected" && w != "static" &&
			w != "final" && w != "abstract" && w != "sealed" && w != "partial" && w != "internal" {
			break
		}
	}
	if strings.HasSuffix(c, "++") || strings.HasSuffix(c, "--") {
		return true
	}
	last := []rune(c)[len([]rune(c))-1]
	return isIdent(last) || last == ')' || last == ']' || last == '"' || last == '\''
}

// braceStack records, for each open brace, whether its body holds data
// (array or object initializers, enum constants) rather than statements.
type braceStack []bool

func (b braceStack) data() bool {
	return len(b) > 0 && b[len(b)-1]
}

// scan pushes and pops the braces opened and closed on line. prev is the
// preceding code line, used as the header of a brace that starts a line.
func (b braceStack) scan(line, prev string) braceStack {
	var quote rune
	escaped := false
	for i, r := range line {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '{':
			header := strings.TrimSpace(line[:i])
			if header == "" {
				header = prev
			}
			b = append(b, b.data() || isDataHeader(header))
		case '}':
			if len(b) > 0 {
				b = b[:len(b)-1]
			}
		}
	}
	return b
}

func isDataHeader(h string) bool {
	for _, suffix := range []string{"=", ",", "(", "[", "]", "return"} {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	for _, w := range strings.FieldsFunc(h, func(r rune) bool { return !isIdent(r) }) {
		if w == "enum" {
			return true
		}
	}
	return false
}

func isContinuation(next string) bool {
	for _, p := range continuationPrefixes {
		if strings.HasPrefix(next, p) {
			return true
		}
	}
	return false
}

func nextCode(code []string, from int) string {
	for _, c := range code[from:] {
		if c != "" {
			return c
		}
	}
	return ""
}

func parenDelta(c string) int {
	d := 0
	var quote rune
	escaped := false
	for _, r := range c {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(':
			d++
		case ')':
			d--
		}
	}
	return d
}

func isIdent(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
