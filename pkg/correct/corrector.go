// Package correct runs the bounded self-correction loop. A run walks
// a fixed progression: a free heuristic repair first, then up to the
// configured number of model re-prompts, then done. Every attempt
// re-enters the same parse/render/validate path the first response
// went through, so a correction can never bypass validation.
package correct

import (
	"context"
	"encoding/json"
	"log"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
	"github.com/calebcgates/ImproveLLMStructure/pkg/transform"
	"github.com/calebcgates/ImproveLLMStructure/pkg/validate"
)

// DefaultBudget is the number of model re-prompts a run may spend.
const DefaultBudget = 4

// Stage labels the phase that produced an attempt.
type Stage string

const (
	StageHeuristic Stage = "heuristic"
	StageReprompt  Stage = "reprompt"
)

// Attempt records one correction try.
type Attempt struct {
	Number   int             `json:"number"`
	Stage    Stage           `json:"stage"`
	Prompt   string          `json:"prompt,omitempty"`
	Response string          `json:"response,omitempty"`
	Output   string          `json:"output"`
	Report   validate.Report `json:"report"`
}

// Result is the outcome of a correction run. Output and Report always
// describe the best available rendering, whether or not the run
// succeeded; TransportErr is set when the run aborted on an upstream
// failure instead of exhausting its budget.
type Result struct {
	Output       string
	Report       validate.Report
	Attempts     []Attempt
	Corrected    bool
	TransportErr error
}

// Input describes the failed output a run starts from.
type Input struct {
	// Output is the rendered text that failed validation.
	Output string
	// Report is the failure being corrected.
	Report validate.Report
	// RawResponse is the model text the output was rendered from.
	RawResponse string
	// OriginalPrompt is the instruction that produced RawResponse.
	OriginalPrompt string
	Format         string
	Intent         schema.Intent
	// Expected constrains the top-level JSON container. It is fixed
	// at entry; re-prompts never re-derive it.
	Expected schema.Container
}

// Corrector drives correction runs. It is safe for concurrent use.
type Corrector struct {
	client     adapter.Client
	formats    *format.Registry
	transforms *transform.Registry
	validator  *validate.Validator
	budget     int
	logf       func(format string, args ...any)
}

// Option adjusts a Corrector.
type Option func(*Corrector)

// WithBudget sets the maximum number of model re-prompts per run.
func WithBudget(budget int) Option {
	return func(c *Corrector) {
		if budget >= 0 {
			c.budget = budget
		}
	}
}

// WithLogger replaces the default standard-library logger.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Corrector) { c.logf = logf }
}

// NewCorrector builds a corrector over the shared registries.
func NewCorrector(client adapter.Client, formats *format.Registry, transforms *transform.Registry, validator *validate.Validator, opts ...Option) *Corrector {
	c := &Corrector{
		client:     client,
		formats:    formats,
		transforms: transforms,
		validator:  validator,
		budget:     DefaultBudget,
		logf:       log.Printf,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correct attempts to repair a failed output. It makes exactly one
// model call per re-prompt attempt and aborts immediately on a
// transport failure, returning the last rendered output either way.
func (c *Corrector) Correct(ctx context.Context, in Input) Result {
	result := Result{Output: in.Output, Report: in.Report}

	if attempt, ok := c.tryHeuristic(in); ok {
		result.Attempts = append(result.Attempts, attempt)
		result.Output = attempt.Output
		result.Report = attempt.Report
		if attempt.Report.Valid {
			result.Corrected = true
			c.logf("correction: heuristic repair succeeded for format %q", in.Format)
			return result
		}
	}

	lastResponse := in.RawResponse
	lastReport := result.Report

	for iteration := 1; iteration <= c.budget; iteration++ {
		prompt := BuildPrompt(lastReport, PromptInput{
			OriginalPrompt: in.OriginalPrompt,
			LastResponse:   lastResponse,
			Format:         in.Format,
			Expected:       in.Expected,
			Intent:         in.Intent,
		})

		response, err := c.client.Complete(ctx, prompt)
		if err != nil {
			c.logf("correction: attempt %d aborted on transport failure: %v", iteration, err)
			result.TransportErr = err
			return result
		}

		output, report := c.reprocess(response, in)
		attempt := Attempt{
			Number:   iteration,
			Stage:    StageReprompt,
			Prompt:   prompt,
			Response: response,
			Output:   output,
			Report:   report,
		}
		result.Attempts = append(result.Attempts, attempt)
		result.Output = output
		result.Report = report

		if report.Valid {
			result.Corrected = true
			c.logf("correction: attempt %d produced valid %s output", iteration, in.Format)
			return result
		}

		c.logf("correction: attempt %d still invalid (%s): %s", iteration, report.Kind, report.Message)
		lastResponse = response
		lastReport = report
	}

	c.logf("correction: budget of %d attempts exhausted for format %q", c.budget, in.Format)
	return result
}

// tryHeuristic attempts a repair without spending a model call. Today
// that covers one case: a JSON output whose raw response hides a
// decodable object or array behind surrounding noise.
func (c *Corrector) tryHeuristic(in Input) (Attempt, bool) {
	spec, ok := c.formats.Lookup(in.Format)
	if !ok || spec.Family != format.FamilyData {
		return Attempt{}, false
	}
	if in.Report.Kind != validate.KindDecodeError {
		return Attempt{}, false
	}

	value, ok := parse.ExtractJSON(in.RawResponse)
	if !ok {
		return Attempt{}, false
	}
	encoded, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		return Attempt{}, false
	}

	output := string(encoded)
	report := c.validator.Validate(output, in.Format, in.Expected)
	return Attempt{
		Number: 0,
		Stage:  StageHeuristic,
		Output: output,
		Report: report,
	}, true
}

// reprocess runs a fresh model response through the same parse,
// render, and validate path as a first response.
func (c *Corrector) reprocess(response string, in Input) (string, validate.Report) {
	spec, _ := c.formats.Lookup(in.Format)
	rep := parse.Parse(response, spec, parse.Options{Intent: in.Intent, Expected: in.Expected})
	output := c.transforms.Render(rep, in.Format, in.Intent)
	report := c.validator.Validate(output, in.Format, in.Expected)

	// The synthesized error document is valid JSON but means the model
	// response was not. Keep correcting it as the decode failure it is.
	if report.Valid && rep.ParseFailed {
		report = validate.Report{
			Kind:    validate.KindDecodeError,
			Message: "could not parse JSON from model response",
		}
	}
	return output, report
}
