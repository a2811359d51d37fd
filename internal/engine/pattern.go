package engine

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/fakeyudi/codepad/internal/language"
)

// Pattern describes how output and input statements look in one language.
// Only the argument text of recognised output calls is inspected; nothing is
// executed.
type Pattern struct {
	Language language.Language
	// Output matches an output statement; group 1 is its argument text.
	Output *regexp.Regexp
	// Input matches any use of the language's standard-input construct.
	Input *regexp.Regexp
	// Comment prefixes mark lines that are skipped.
	Comment []string
	// ArgSep separates call arguments; empty means a single argument.
	ArgSep string
	// ArgJoin joins rendered arguments.
	ArgJoin string
	// FirstArgOnly keeps only the first argument (format-string calls).
	FirstArgOnly bool
	// Concat lists the string concatenation operators.
	Concat []string
	// Skip lists operands that contribute nothing to the line (newline
	// manipulators and constants).
	Skip []string
}

var patterns = []Pattern{
	{
		Language: language.TypeScript,
		Output:   regexp.MustCompile(`\bconsole\.(?:log|info|warn|error)\s*\((.*)\)`),
		Input:    regexp.MustCompile(`\breadline\b|\bprompt\s*\(|process\.stdin`),
		Comment:  []string{"//"},
		ArgSep:   ",",
		ArgJoin:  " ",
		Concat:   []string{"+"},
	},
	{
		Language: language.Python,
		Output:   regexp.MustCompile(`\bprint\s*\((.*)\)`),
		Input:    regexp.MustCompile(`\binput\s*\(|sys\.stdin`),
		Comment:  []string{"#"},
		ArgSep:   ",",
		ArgJoin:  " ",
		Concat:   []string{"+"},
	},
	{
		Language: language.Java,
		Output:   regexp.MustCompile(`\bSystem\.out\.print(?:ln)?\s*\((.*)\)\s*;`),
		Input:    regexp.MustCompile(`\bScanner\b|System\.in\b|BufferedReader`),
		Comment:  []string{"//", "/*", "*"},
		Concat:   []string{"+"},
	},
	{
		Language:     language.CSharp,
		Output:       regexp.MustCompile(`\bConsole\.Write(?:Line)?\s*\((.*)\)\s*;`),
		Input:        regexp.MustCompile(`\bConsole\.Read(?:Line|Key)?\s*\(`),
		Comment:      []string{"//", "/*", "*"},
		ArgSep:       ",",
		FirstArgOnly: true,
		Concat:       []string{"+"},
	},
	{
		Language: language.PHP,
		Output:   regexp.MustCompile(`\b(?:echo|print)\s+(.*?)\s*;`),
		Input:    regexp.MustCompile(`\bSTDIN\b|\breadline\s*\(|php://stdin`),
		Comment:  []string{"//", "#", "/*", "*"},
		ArgSep:   ",",
		Concat:   []string{"."},
		Skip:     []string{"PHP_EOL"},
	},
	{
		Language: language.CPP,
		Output:   regexp.MustCompile(`\b(?:std::)?cout\s*<<\s*(.*?)\s*;`),
		Input:    regexp.MustCompile(`\b(?:std::)?cin\b|\bgetline\s*\(|\bscanf\s*\(`),
		Comment:  []string{"//", "/*", "*"},
		Concat:   []string{"<<"},
		Skip:     []string{"endl", "std::endl", `"\n"`, `'\n'`},
	},
}

// PatternFor returns the pattern registered for lang.
func PatternFor(lang language.Language) (Pattern, bool) {
	for _, p := range patterns {
		if p.Language == lang {
			return p, true
		}
	}
	return Pattern{}, false
}

var placeholderRe = regexp.MustCompile(`\$?\{[^{}]*\}`)

// PatternStrategy simulates a run by extracting the literal text of output
// statements.
type PatternStrategy struct {
	Pattern     Pattern
	Placeholder string
}

func (s *PatternStrategy) Run(_ context.Context, source, stdin string) Result {
	p := s.Pattern
	var out []string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || hasAnyPrefix(trimmed, p.Comment) {
			continue
		}
		for _, m := range p.Output.FindAllStringSubmatch(line, -1) {
			text := p.render(m[1])
			if stdin != "" {
				text = placeholderRe.ReplaceAllLiteralString(text, stdin)
			}
			out = append(out, strings.Split(strings.TrimSuffix(text, "\n"), "\n")...)
		}
	}

	if p.Input != nil && p.Input.MatchString(source) {
		input := stdin
		if input == "" {
			input = s.Placeholder
		}
		out = append(out, "Input received: "+input)
	}
	if len(out) == 0 {
		out = []string{p.Language.DisplayName() + " code executed (simulation)"}
	}
	return Result{OutputLines: out}
}

// render turns an argument list into the text it would print. Quoted
// literals contribute their content; any other operand becomes a {name}
// placeholder.
func (p Pattern) render(args string) string {
	parts := []string{args}
	if p.ArgSep != "" {
		parts = splitTop(args, []string{p.ArgSep})
		if p.FirstArgOnly && len(parts) > 1 {
			parts = parts[:1]
		}
	}
	var rendered []string
	for _, arg := range parts {
		arg = strings.TrimSpace(arg)
		if arg == "" || isKeywordArg(arg) {
			continue
		}
		rendered = append(rendered, p.renderExpr(arg))
	}
	return strings.Join(rendered, p.ArgJoin)
}

func (p Pattern) renderExpr(expr string) string {
	var b strings.Builder
	literal := false
	for _, op := range splitTop(expr, p.Concat) {
		op = strings.TrimSpace(op)
		if op == "" || slices.Contains(p.Skip, op) {
			continue
		}
		if s, ok := unquote(op); ok {
			literal = true
			b.WriteString(s)
			continue
		}
		b.WriteString("{" + op + "}")
	}
	if !literal {
		return "{" + expr + "}"
	}
	return b.String()
}

// splitTop splits s on any of seps, ignoring separators inside quotes or
// brackets.
func splitTop(s string, seps []string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		for _, sep := range seps {
			if !strings.HasPrefix(s[i:], sep) {
				continue
			}
			// 3.14 is a number, not PHP concatenation.
			if sep == "." && i > 0 && i+1 < len(s) && isDigit(s[i-1]) && isDigit(s[i+1]) {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + len(sep)
			i = start - 1
			break
		}
	}
	return append(parts, s[start:])
}

// unquote returns the content of a string literal, accepting the f/r/b/u
// prefixes of python and the $/@ prefixes of C#.
func unquote(s string) (string, bool) {
	body := strings.TrimLeft(s, "fFrRbBuU$@")
	if len(s)-len(body) > 2 || len(body) < 2 {
		return "", false
	}
	q := body[0]
	if (q != '"' && q != '\'' && q != '`') || body[len(body)-1] != q {
		return "", false
	}
	inner := body[1 : len(body)-1]
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' {
			i++
			continue
		}
		if inner[i] == q {
			return "", false
		}
	}
	return escapes.Replace(inner), true
}

var escapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\'`, `'`, "\\`", "`", `\\`, `\`)

// isKeywordArg reports python-style keyword arguments such as end="".
func isKeywordArg(arg string) bool {
	i := strings.IndexByte(arg, '=')
	if i <= 0 || i+1 < len(arg) && arg[i+1] == '=' {
		return false
	}
	for j := 0; j < i; j++ {
		c := arg[j]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || j > 0 && isDigit(c)) {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
