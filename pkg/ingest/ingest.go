// Package ingest turns an inbound request into the resolved context a
// pipeline run needs: the effective output format, the code intent,
// the expected JSON container, the input profile, and the full
// instruction sent upstream.
package ingest

import (
	"context"
	"log"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
	"github.com/calebcgates/ImproveLLMStructure/pkg/structure"
)

// deductionThreshold is the input-profile confidence below which
// keyword deduction is distrusted and the model is consulted.
const deductionThreshold = 0.6

// Request is the raw inbound payload before any resolution.
type Request struct {
	// Prompt is the user's instruction text.
	Prompt string
	// Format names the requested output format; empty means deduce.
	Format string
	// RawIntent is the caller's intent string, normalized later.
	RawIntent string
	// ContentType and Body describe attached input data, when any.
	ContentType string
	Body        string
}

// Context is the fully resolved request. Everything downstream of
// ingest treats it as read-only.
type Context struct {
	Prompt       string
	Format       string
	Intent       schema.Intent
	Expected     schema.Container
	InputProfile schema.Profile
	// Instruction is the augmented prompt actually sent to the model.
	Instruction string
}

// Builder resolves requests. The client is optional; without one,
// format deduction stays keyword-only.
type Builder struct {
	analyzer      *structure.Analyzer
	formats       *format.Registry
	client        adapter.Client
	defaultFormat string
	logf          func(format string, args ...any)
}

// NewBuilder creates a request builder. defaultFormat is used when
// nothing in the request or prompt names a format.
func NewBuilder(analyzer *structure.Analyzer, formats *format.Registry, client adapter.Client, defaultFormat string) *Builder {
	if defaultFormat == "" {
		defaultFormat = "plaintext"
	}
	return &Builder{
		analyzer:      analyzer,
		formats:       formats,
		client:        client,
		defaultFormat: defaultFormat,
		logf:          log.Printf,
	}
}

// SetLogger replaces the default standard-library logger.
func (b *Builder) SetLogger(logf func(format string, args ...any)) {
	b.logf = logf
}

// Build resolves a request into a pipeline context. ctx is used only
// for the optional model-assisted format deduction.
func (b *Builder) Build(ctx context.Context, req Request) Context {
	input := req.Body
	if input == "" {
		input = req.Prompt
	}
	profile := b.analyzer.AnalyzeInput(input, req.ContentType)

	agent := analyzeAgentPrompt(req.Prompt)
	formatName := b.resolveFormat(ctx, req, profile, agent)
	intent := resolveIntent(req.RawIntent, req.Prompt, agent)

	resolved := Context{
		Prompt:       req.Prompt,
		Format:       formatName,
		Intent:       intent,
		Expected:     schema.ExpectedContainer(req.Prompt),
		InputProfile: profile,
	}
	resolved.Instruction = b.buildInstruction(resolved, req.Body)
	return resolved
}

// agentDeduction is what an agent-style prompt reveals about the
// desired output, when anything.
type agentDeduction struct {
	format    string
	intent    schema.Intent
	hasIntent bool
}

// profileConfidenceFloor is the input-profile confidence a structured
// input classification needs before it alone selects the json format.
const profileConfidenceFloor = 0.8

// resolveFormat picks the output format. Explicit request first, with
// unrecognized names passed through so validation can classify them,
// then agent-prompt analysis, then the input profile, then prompt
// keywords, then (for low-confidence input) the model, then the
// default.
func (b *Builder) resolveFormat(ctx context.Context, req Request, profile schema.Profile, agent agentDeduction) string {
	if req.Format != "" {
		if spec, ok := b.formats.Lookup(req.Format); ok {
			return spec.Name
		}
		return strings.ToLower(strings.TrimSpace(req.Format))
	}

	if agent.format != "" {
		return agent.format
	}

	if name, ok := deduceFromProfile(profile, req.ContentType); ok {
		return name
	}

	if name, ok := b.deduceFromKeywords(req.Prompt); ok {
		return name
	}

	if b.client != nil && profile.Confidence < deductionThreshold {
		if name, ok := b.deduceFromModel(ctx, req.Prompt); ok {
			return name
		}
	}

	return b.defaultFormat
}

// deduceFromProfile maps confidently classified structured input to
// the json format: CSV and JSON payloads come back as JSON unless the
// caller says otherwise.
func deduceFromProfile(profile schema.Profile, contentType string) (string, bool) {
	if profile.Confidence > profileConfidenceFloor &&
		(profile.Kind == schema.KindCSVInput || profile.Kind == schema.KindJSONInput) {
		return "json", true
	}
	if strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		return "json", true
	}
	return "", false
}

// analyzeAgentPrompt inspects role-play phrasing ("act as", "you are
// a") and agent-framework key markers for what the caller really
// wants back.
func analyzeAgentPrompt(prompt string) agentDeduction {
	lower := strings.ToLower(prompt)

	rolePlay := false
	for _, marker := range []string{
		"as a developer", "as a data scientist", "as a writer",
		"act as", "your role is", "you are a", "pretend to be",
		"simulate a", "emulate a", "behave like a",
	} {
		if strings.Contains(lower, marker) {
			rolePlay = true
			break
		}
	}

	if rolePlay {
		switch {
		case containsAny(lower, "developer", "coder", "programmer", "write code", "coding", "programming", "create a function"):
			return agentDeduction{format: "python", intent: schema.IntentCodeOnly, hasIntent: true}
		case containsAny(lower, "data scientist", "statistician", "analyze data", "data analysis", "statistical analysis"):
			return agentDeduction{format: "json"}
		case containsAny(lower, "writer", "author", "journalist", "write a story", "compose a poem", "draft an article"):
			return agentDeduction{format: "plaintext"}
		}
	}

	// Prompts quoting JSON keys they expect in the reply.
	if containsAny(lower,
		`"is_valid":`, `"plan":`, `"subtasks":`, `"nodes":`, `"edges":`,
		`"answer":`, `"score":`, `"role_name":`,
		"planner agent", "knowledge graph construction") {
		return agentDeduction{format: "json"}
	}

	return agentDeduction{}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// deduceFromKeywords scans the prompt for format names and the usual
// aliases. Data and markup mentions win over code-language names,
// which are noisier.
func (b *Builder) deduceFromKeywords(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)

	if containsWord(lower, "json") {
		return "json", true
	}
	for _, alias := range []string{"html", "webpage", "web page", "table", "bullet list"} {
		if strings.Contains(lower, alias) {
			return "html", true
		}
	}

	for _, name := range b.formats.Names() {
		spec, _ := b.formats.Lookup(name)
		if spec.Family != format.FamilyCode {
			continue
		}
		if containsWord(lower, name) && mentionsCode(lower) {
			return name, true
		}
	}
	return "", false
}

// deduceFromModel asks the model to name the best format in one word
// and accepts the answer only if the registry knows it.
func (b *Builder) deduceFromModel(ctx context.Context, prompt string) (string, bool) {
	question := "Reply with a single word naming the best output format for the following request. " +
		"Choose from: " + strings.Join(b.formats.Names(), ", ") + ".\n\nRequest:\n" + prompt

	answer, err := b.client.Complete(ctx, question)
	if err != nil {
		b.logf("ingest: format deduction call failed: %v", err)
		return "", false
	}

	candidate := strings.ToLower(strings.TrimSpace(answer))
	candidate = strings.Trim(candidate, `."'`)
	if spec, ok := b.formats.Lookup(candidate); ok {
		b.logf("ingest: model deduced output format %q", spec.Name)
		return spec.Name, true
	}
	b.logf("ingest: model named unknown format %q, falling back", candidate)
	return "", false
}

func resolveIntent(rawIntent, prompt string, agent agentDeduction) schema.Intent {
	if intent, ok := schema.ParseIntent(rawIntent); ok {
		return intent
	}
	if agent.hasIntent {
		return agent.intent
	}

	lower := strings.ToLower(prompt)
	for _, phrase := range []string{"only the code", "just the code", "code only", "no explanation"} {
		if strings.Contains(lower, phrase) {
			return schema.IntentCodeOnly
		}
	}
	for _, phrase := range []string{"explain", "with comments", "documented", "walk me through"} {
		if strings.Contains(lower, phrase) {
			return schema.IntentCodeWithExplanation
		}
	}
	return schema.IntentCodeWithExplanation
}

// buildInstruction augments the prompt with format directives and the
// attached input data so the model sees everything in one message.
func (b *Builder) buildInstruction(resolved Context, body string) string {
	var sb strings.Builder

	prompt := resolved.Prompt
	if prompt == "" && resolved.InputProfile.Kind == schema.KindCSVInput && resolved.Format == "json" {
		prompt = "Convert the following CSV data to JSON."
	}
	sb.WriteString(prompt)

	if body != "" && body != prompt {
		sb.WriteString("\n\nInput data:\n---\n")
		sb.WriteString(body)
		sb.WriteString("\n---")
	}

	switch resolved.Format {
	case "json":
		sb.WriteString("\n\nRespond with valid JSON only. No markdown fences, no commentary.")
		if resolved.Expected != schema.ContainerNone {
			sb.WriteString(" The top-level value must be a JSON ")
			sb.WriteString(string(resolved.Expected))
			sb.WriteString(".")
		}
	case "html":
		sb.WriteString("\n\nRespond with well-formed HTML using real tags. No markdown.")
	case "plaintext":
		// No directive; plain prose is the model's default register.
	default:
		// Only registered code formats get the code directive; an
		// unrecognized passthrough name gives the model nothing useful.
		if spec, ok := b.formats.Lookup(resolved.Format); ok && spec.Family == format.FamilyCode {
			sb.WriteString("\n\nRespond with ")
			sb.WriteString(resolved.Format)
			sb.WriteString(" code.")
			if resolved.Intent == schema.IntentCodeOnly {
				sb.WriteString(" Return only the code, with no additional text.")
			}
		}
	}

	return sb.String()
}

// containsWord reports a whole-word match, so "go" does not fire on
// "going".
func containsWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		leftOK := idx == 0 || !isWordByte(text[idx-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func mentionsCode(text string) bool {
	for _, hint := range []string{"code", "function", "script", "program", "implement", "write a"} {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
