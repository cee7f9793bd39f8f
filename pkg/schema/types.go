// Package schema holds the small request-scoped value types shared by
// every pipeline stage. All values here are plain data: created once
// per request and never mutated across correction attempts.
package schema

import "strings"

// Intent is the caller's preference for code-bearing output.
type Intent string

const (
	// IntentCodeOnly means the final output must contain nothing but code.
	IntentCodeOnly Intent = "code_only"

	// IntentCodeWithExplanation keeps explanatory text alongside code.
	IntentCodeWithExplanation Intent = "code_with_explanation"
)

// ParseIntent normalizes a free-form intent string to one of the two
// supported intents. Unrecognized values return ok=false and the
// default intent.
func ParseIntent(raw string) (Intent, bool) {
	normalized := strings.ToLower(raw)
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")

	switch normalized {
	case "codeonly", "justcode", "executablecode":
		return IntentCodeOnly, true
	case "codewithexplanation", "explaincode", "withcomments", "documented":
		return IntentCodeWithExplanation, true
	default:
		return IntentCodeWithExplanation, false
	}
}

// Container names the top-level shape of a JSON document.
type Container string

const (
	ContainerNone   Container = ""
	ContainerObject Container = "object"
	ContainerArray  Container = "array"
)

// ContainerOf classifies a decoded JSON value.
func ContainerOf(value any) Container {
	switch value.(type) {
	case map[string]any:
		return ContainerObject
	case []any:
		return ContainerArray
	default:
		return ContainerNone
	}
}

// ExpectedContainer derives the container kind the caller wants, from
// the original instruction text. It is computed once per request and
// reused unchanged across every correction attempt.
func ExpectedContainer(promptText string) Container {
	lower := strings.ToLower(promptText)
	switch {
	case strings.Contains(lower, "array"):
		return ContainerArray
	case strings.Contains(lower, "object"):
		return ContainerObject
	default:
		return ContainerNone
	}
}
