package parse

import (
	"regexp"
	"strings"
)

var (
	fenceOpen     = regexp.MustCompile("```[a-zA-Z0-9_+#-]*[ \t]*")
	resultWrapper = regexp.MustCompile(`(?s)^\{"result":\s*(.+)\}\s*$`)
	jsonFence     = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)```$")

	// Disclaimer boilerplate some models prepend regardless of the
	// instruction. Matched case-insensitively and removed outright.
	disclaimers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)as an ai language model,? (i )?(can('?t)?|am\s+able\s*(to)?)`),
		regexp.MustCompile(`(?i)i am an ai model`),
		regexp.MustCompile(`(?i)i'm just an ai model`),
	}
)

// Cleanup strips the formatting artifacts models commonly wrap around
// their answers: fenced code-block delimiters (any language tag), a
// whole-text {"result": ...} envelope, and known disclaimer phrases.
// It is a pure transform and idempotent: Cleanup(Cleanup(x)) ==
// Cleanup(x).
func Cleanup(text string) string {
	// Run the pass to a fixpoint: removal can expose a new envelope or
	// disclaimer match, and a single application must be stable.
	for i := 0; i < 8; i++ {
		cleaned := cleanupPass(text)
		if cleaned == text {
			break
		}
		text = cleaned
	}
	return text
}

func cleanupPass(text string) string {
	text = fenceOpen.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	text = resultWrapper.ReplaceAllString(strings.TrimSpace(text), "$1")
	for _, pattern := range disclaimers {
		text = pattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// SanitizeJSON prepares text that is supposed to be JSON for a decode
// attempt: it unwraps a single markdown fence, drops one trailing '%'
// (a shell prompt artifact), and trims whitespace. Kept separate from
// Cleanup because a trailing '%' is meaningful in prose output.
func SanitizeJSON(text string) string {
	text = strings.TrimSpace(text)
	text = jsonFence.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "%")
	return strings.TrimSpace(text)
}
