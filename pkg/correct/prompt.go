package correct

import (
	"fmt"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
	"github.com/calebcgates/ImproveLLMStructure/pkg/validate"
)

// PromptInput carries everything a correction prompt embeds.
type PromptInput struct {
	// OriginalPrompt is the instruction the model failed to satisfy.
	OriginalPrompt string
	// LastResponse is the raw text of the failed attempt.
	LastResponse string
	// Format is the requested output format name.
	Format string
	// Expected constrains the top-level JSON container, when any.
	Expected schema.Container
	// Intent is the caller's code intent, when the format is code.
	Intent schema.Intent
}

// BuildPrompt creates a re-prompt targeted at the specific validation
// failure. Each failure kind gets its own wording so the model learns
// what exactly was wrong, not just that something was.
func BuildPrompt(report validate.Report, in PromptInput) string {
	var sb strings.Builder

	switch report.Kind {
	case validate.KindDecodeError:
		sb.WriteString("Your previous response was not valid JSON.\n")
		if report.Line > 0 {
			fmt.Fprintf(&sb, "The parser failed at line %d, column %d.\n", report.Line, report.Column)
		}
		fmt.Fprintf(&sb, "Parser message: %s\n\n", report.Message)
		sb.WriteString("Respond with valid JSON only. No markdown fences, no commentary, no text before or after the JSON.\n")
	case validate.KindStructureMismatch:
		sb.WriteString("Your previous response was valid JSON but had the wrong top-level structure.\n")
		fmt.Fprintf(&sb, "Problem: %s\n\n", report.Message)
		if in.Expected != schema.ContainerNone {
			fmt.Fprintf(&sb, "Respond with a JSON %s at the top level. ", in.Expected)
		}
		sb.WriteString("Respond with the JSON only.\n")
	case validate.KindMarkupStructure:
		sb.WriteString("Your previous response was supposed to be HTML but contained no HTML elements.\n")
		fmt.Fprintf(&sb, "Problem: %s\n\n", report.Message)
		sb.WriteString("Respond with well-formed HTML using real tags such as <table>, <ul>, or <p>. No markdown, no plain text.\n")
	case validate.KindCodeSyntax:
		fmt.Fprintf(&sb, "Your previous response contained %s code with a syntax error.\n", in.Format)
		if report.Line > 0 {
			fmt.Fprintf(&sb, "The error is at line %d, column %d.\n", report.Line, report.Column)
		}
		fmt.Fprintf(&sb, "Problem: %s\n\n", report.Message)
		fmt.Fprintf(&sb, "Respond with corrected, syntactically valid %s code.\n", in.Format)
	default:
		sb.WriteString("Your previous response could not be processed.\n")
		if report.Message != "" {
			fmt.Fprintf(&sb, "Problem: %s\n\n", report.Message)
		}
		fmt.Fprintf(&sb, "Respond again in valid %s format.\n", in.Format)
	}

	sb.WriteString("\nThe original request was:\n---\n")
	sb.WriteString(in.OriginalPrompt)
	sb.WriteString("\n---\n")

	sb.WriteString("\nYour previous response was:\n---\n")
	sb.WriteString(in.LastResponse)
	sb.WriteString("\n---\n")

	if in.Intent == schema.IntentCodeOnly {
		sb.WriteString("\nReturn only the code, with no additional text.\n")
	}

	return sb.String()
}
