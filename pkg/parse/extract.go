package parse

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_+#-]*[ \t]*\n?(.*?)```")

// ExtractJSON finds the first valid JSON region in free text by
// scanning for balanced braces, then balanced brackets. An
// object-shaped region always wins over an array-shaped one, and an
// earlier region wins over a later one of the same bracket kind. The
// boolean result is false when no region decodes.
func ExtractJSON(text string) (any, bool) {
	text = SanitizeJSON(text)

	if value, ok := scanBalanced(text, '{', '}'); ok {
		return value, true
	}
	return scanBalanced(text, '[', ']')
}

// scanBalanced walks the text tracking a nesting depth for one bracket
// pair. Each time the depth returns to zero the candidate region is
// decoded; a failed decode keeps scanning rather than aborting. A
// stray closer resets the scan.
func scanBalanced(text string, opener, closer byte) (any, bool) {
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case opener:
			if depth == 0 {
				start = i
			}
			depth++
		case closer:
			if depth == 0 {
				start = -1
				continue
			}
			depth--
			if depth == 0 {
				var value any
				if err := json.Unmarshal([]byte(text[start:i+1]), &value); err == nil {
					return value, true
				}
			}
		}
	}
	return nil, false
}

// ExtractCode pulls code fragments out of model text. Fenced blocks
// win, one fragment per fence with the language tag ignored. Without
// fences, each maximal run of contiguously indented lines (at least
// four spaces or a tab) becomes one fragment, stripped of its leading
// indentation.
func ExtractCode(text string) []string {
	var fragments []string
	for _, match := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(match[1]); body != "" {
			fragments = append(fragments, body)
		}
	}
	if len(fragments) > 0 {
		return fragments
	}
	return indentedRuns(text)
}

func indentedRuns(text string) []string {
	var fragments []string
	var run []string

	flush := func() {
		if len(run) > 0 {
			fragments = append(fragments, strings.Join(run, "\n"))
			run = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		stripped, indented := stripIndent(line)
		if indented && strings.TrimSpace(stripped) != "" {
			run = append(run, stripped)
			continue
		}
		flush()
	}
	flush()

	return fragments
}

func stripIndent(line string) (string, bool) {
	if strings.HasPrefix(line, "    ") {
		return strings.TrimLeft(line, " "), true
	}
	if strings.HasPrefix(line, "\t") {
		return strings.TrimLeft(line, "\t"), true
	}
	return line, false
}
