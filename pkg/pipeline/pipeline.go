// Package pipeline orchestrates one request end to end: resolve the
// request, call the model, normalize and render the response, validate
// it, and run the correction loop when validation fails. The pipeline
// owns no policy of its own; every decision lives in the package that
// implements it.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/correct"
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/ingest"
	"github.com/calebcgates/ImproveLLMStructure/pkg/learn"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
	"github.com/calebcgates/ImproveLLMStructure/pkg/structure"
	"github.com/calebcgates/ImproveLLMStructure/pkg/transform"
	"github.com/calebcgates/ImproveLLMStructure/pkg/validate"
)

// Pipeline wires the stages together. Construct once, share freely;
// every field is safe for concurrent use.
type Pipeline struct {
	client     adapter.Client
	builder    *ingest.Builder
	analyzer   *structure.Analyzer
	formats    *format.Registry
	transforms *transform.Registry
	validator  *validate.Validator
	corrector  *correct.Corrector
	recorder   learn.Recorder
	logf       func(format string, args ...any)
}

// Options configures pipeline construction.
type Options struct {
	Client adapter.Client
	// Formats defaults to the built-in registry.
	Formats *format.Registry
	// Recorder defaults to a no-op.
	Recorder learn.Recorder
	// RetryBudget caps correction re-prompts; zero means the package
	// default, negative disables correction.
	RetryBudget int
	// DefaultFormat is used when a request names no format.
	DefaultFormat string
	Logger        func(format string, args ...any)
}

// New builds a pipeline and its stage components.
func New(opts Options) *Pipeline {
	formats := opts.Formats
	if formats == nil {
		formats = format.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = learn.NopRecorder{}
	}
	logf := opts.Logger
	if logf == nil {
		logf = log.Printf
	}

	analyzer := structure.NewAnalyzer(formats)
	transforms := transform.NewRegistry(formats)
	validator := validate.NewValidator(formats)

	correctorOpts := []correct.Option{correct.WithLogger(logf)}
	if opts.RetryBudget > 0 {
		correctorOpts = append(correctorOpts, correct.WithBudget(opts.RetryBudget))
	} else if opts.RetryBudget < 0 {
		correctorOpts = append(correctorOpts, correct.WithBudget(0))
	}

	return &Pipeline{
		client:     opts.Client,
		builder:    ingest.NewBuilder(analyzer, formats, opts.Client, opts.DefaultFormat),
		analyzer:   analyzer,
		formats:    formats,
		transforms: transforms,
		validator:  validator,
		corrector:  correct.NewCorrector(opts.Client, formats, transforms, validator, correctorOpts...),
		recorder:   recorder,
		logf:       logf,
	}
}

// Result is the outcome of one pipeline run. Output is always the best
// available rendering; Report says whether it is trustworthy.
type Result struct {
	Output      string
	Format      string
	Report      validate.Report
	Context     ingest.Context
	RawResponse string
	Attempts    []correct.Attempt
	Corrected   bool
	// TransportErr is set when the correction loop aborted on an
	// upstream failure. Output still holds the last rendering.
	TransportErr error
	Duration     time.Duration
}

// Run processes one request. The returned error is non-nil only when
// the initial model call fails; the pipeline itself never fails on
// bad model output.
func (p *Pipeline) Run(ctx context.Context, req ingest.Request) (*Result, error) {
	start := time.Now()

	resolved := p.builder.Build(ctx, req)
	p.logf("pipeline: resolved format=%q intent=%q expected=%q input=%s(%.2f)",
		resolved.Format, resolved.Intent, resolved.Expected,
		resolved.InputProfile.Kind, resolved.InputProfile.Confidence)

	response, err := p.client.Complete(ctx, resolved.Instruction)
	if err != nil {
		return nil, err
	}

	output, report, rep := p.process(response, resolved)
	initialProfile := rep.OutputProfile

	result := &Result{
		Output:      output,
		Format:      resolved.Format,
		Report:      report,
		Context:     resolved,
		RawResponse: response,
	}

	if !report.Valid {
		correction := p.corrector.Correct(ctx, correct.Input{
			Output:         output,
			Report:         report,
			RawResponse:    response,
			OriginalPrompt: resolved.Instruction,
			Format:         resolved.Format,
			Intent:         resolved.Intent,
			Expected:       resolved.Expected,
		})
		result.Output = correction.Output
		result.Report = correction.Report
		result.Attempts = correction.Attempts
		result.Corrected = correction.Corrected
		result.TransportErr = correction.TransportErr
		if last := lastResponse(correction.Attempts); last != "" {
			result.RawResponse = last
		}
	}

	result.Duration = time.Since(start)
	p.record(resolved, result, initialProfile)
	return result, nil
}

// process runs one raw response through normalize, classify, render,
// and validate. The correction loop repeats the same sequence through
// the corrector.
func (p *Pipeline) process(response string, resolved ingest.Context) (string, validate.Report, *parse.Representation) {
	spec, _ := p.formats.Lookup(resolved.Format)
	rep := parse.Parse(response, spec, parse.Options{
		Intent:   resolved.Intent,
		Expected: resolved.Expected,
	})
	rep.OutputProfile = p.analyzer.AnalyzeOutput(response, resolved.Format)

	output := p.transforms.Render(rep, resolved.Format, resolved.Intent)
	report := p.validator.Validate(output, resolved.Format, resolved.Expected)

	// A synthesized error document is valid JSON, so the validator
	// alone would wave it through. Surface the upstream parse failure
	// as the decode error it is.
	if report.Valid && rep.ParseFailed {
		report = validate.Report{
			Kind:    validate.KindDecodeError,
			Message: "could not parse JSON from model response",
		}
	}
	return output, report, rep
}

// record ships the finished interaction to the recorder without
// blocking the response path.
func (p *Pipeline) record(resolved ingest.Context, result *Result, initialProfile schema.Profile) {
	record := learn.InteractionRecord{
		Timestamp:      time.Now().UTC(),
		Prompt:         resolved.Prompt,
		Format:         resolved.Format,
		Intent:         resolved.Intent,
		InputProfile:   resolved.InputProfile,
		OutputProfile:  initialProfile,
		RawResponse:    result.RawResponse,
		Output:         result.Output,
		Report:         result.Report,
		Attempts:       result.Attempts,
		Corrected:      result.Corrected,
		DurationMillis: result.Duration.Milliseconds(),
	}

	if result.Corrected {
		finalProfile := p.analyzer.AnalyzeOutput(result.RawResponse, resolved.Format)
		if delta, changed := learn.DeltaBetween(initialProfile, finalProfile); changed {
			record.ProfileDeltas = append(record.ProfileDeltas, delta)
		}
	}

	go p.recorder.Record(record)
}

func lastResponse(attempts []correct.Attempt) string {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Response != "" {
			return attempts[i].Response
		}
	}
	return ""
}
