package assist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fakeyudi/codepad/internal/language"
)

var (
	openFence  = regexp.MustCompile("```[\\w+#.-]*\\n?")
	closeFence = regexp.MustCompile("```\\n?")
)

// StripFences removes Markdown code-fence markers (with or without a language
// tag) and surrounding whitespace.
func StripFences(s string) string {
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ErrorCorrectionPrompt asks the assistant to fix code that fails with errMsg.
func ErrorCorrectionPrompt(code, errMsg string, lang language.Language) string {
	return fmt.Sprintf("Fix the following %s code that has this error: \"%s\"\n\nCode:\n%s\n\n"+
		"Provide ONLY the corrected code without explanations or markdown.",
		lang.DisplayName(), errMsg, StripFences(code))
}

// OptimizationPrompt asks for a cosmetic rewrite that keeps the algorithm intact.
func OptimizationPrompt(code string, lang language.Language) string {
	return fmt.Sprintf(`Improve the following %s code while maintaining its exact logic and approach. Focus on:
1. Code formatting and indentation
2. Variable naming consistency
3. Adding 1-2 comments for the main logic
4. Removing any redundant code
5. Keeping the same solution approach and algorithm

Important: Do not suggest alternative solutions or change the core logic. Only improve the existing code structure.

Code to improve:
%s

Provide the improved code with minimal comments. Do not add explanations or markdown.`,
		lang.DisplayName(), StripFences(code))
}
