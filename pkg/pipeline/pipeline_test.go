package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/correct"
	"github.com/calebcgates/ImproveLLMStructure/pkg/ingest"
	"github.com/calebcgates/ImproveLLMStructure/pkg/validate"
)

// sequenceClient replays responses in order and can start failing
// after a given number of calls.
type sequenceClient struct {
	responses []string
	failAfter int
	failWith  error
	calls     int
}

func (c *sequenceClient) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if c.failWith != nil && c.calls > c.failAfter {
		return "", c.failWith
	}
	idx := c.calls - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *sequenceClient) Name() string     { return "sequence" }
func (c *sequenceClient) Models() []string { return []string{"seq-1"} }

func newTestPipeline(client adapter.Client, budget int) *Pipeline {
	return New(Options{
		Client:        client,
		RetryBudget:   budget,
		DefaultFormat: "plaintext",
		Logger:        func(string, ...any) {},
	})
}

func TestRunValidFirstTry(t *testing.T) {
	client := &sequenceClient{responses: []string{`{"answer": 42}`}}
	p := newTestPipeline(client, 4)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute the answer", Format: "json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Report.Valid {
		t.Fatalf("expected valid report: %+v", result.Report)
	}
	if result.Corrected || len(result.Attempts) != 0 {
		t.Fatalf("no correction expected: %+v", result)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", client.calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result.Output), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if decoded["answer"] != float64(42) {
		t.Fatalf("unexpected output: %q", result.Output)
	}
}

func TestRunCorrectsInvalidResponse(t *testing.T) {
	client := &sequenceClient{responses: []string{
		"I would love to help but here is prose instead",
		`{"fixed": true}`,
	}}
	p := newTestPipeline(client, 4)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute data", Format: "json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Corrected {
		t.Fatalf("expected correction: %+v", result.Report)
	}
	if !result.Report.Valid {
		t.Fatalf("final report invalid: %+v", result.Report)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", client.calls)
	}
	if !strings.Contains(result.Output, `"fixed"`) {
		t.Fatalf("corrected output lost: %q", result.Output)
	}
	if result.RawResponse != `{"fixed": true}` {
		t.Fatalf("raw response should track the last attempt: %q", result.RawResponse)
	}
}

func TestRunExhaustsBudget(t *testing.T) {
	client := &sequenceClient{responses: []string{"never json, not even once"}}
	p := newTestPipeline(client, 2)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute data", Format: "json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Corrected {
		t.Fatalf("expected exhaustion")
	}
	if result.Report.Valid {
		t.Fatalf("report should stay invalid: %+v", result.Report)
	}
	if client.calls != 3 {
		t.Fatalf("expected 1 initial + 2 correction calls, got %d", client.calls)
	}
	// The output still serves: the error document is well-formed JSON.
	var decoded map[string]any
	if err := json.Unmarshal([]byte(result.Output), &decoded); err != nil {
		t.Fatalf("degraded output not valid JSON: %v", err)
	}
	if decoded["error"] == nil {
		t.Fatalf("expected error document, got %q", result.Output)
	}
}

func TestRunAbortsCorrectionOnTransportFailure(t *testing.T) {
	client := &sequenceClient{
		responses: []string{"prose, not json"},
		failAfter: 1,
		failWith:  &adapter.TransportError{Kind: adapter.TransportTimeout, Err: errors.New("deadline")},
	}
	p := newTestPipeline(client, 4)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute data", Format: "json"})
	if err != nil {
		t.Fatalf("initial call succeeded, Run must not fail: %v", err)
	}
	if result.TransportErr == nil {
		t.Fatalf("expected transport error on result")
	}
	if client.calls != 2 {
		t.Fatalf("expected abort after first correction call, got %d", client.calls)
	}
	if result.Output == "" {
		t.Fatalf("best-effort output missing")
	}
}

func TestRunInitialTransportFailure(t *testing.T) {
	client := &sequenceClient{
		failAfter: 0,
		failWith:  &adapter.TransportError{Kind: adapter.TransportRequest, Err: errors.New("refused")},
	}
	p := newTestPipeline(client, 4)

	_, err := p.Run(context.Background(), ingest.Request{Prompt: "anything", Format: "plaintext"})
	if err == nil {
		t.Fatalf("expected error from failed initial call")
	}
	if !adapter.IsTransport(err) {
		t.Fatalf("error should be transport-classified: %v", err)
	}
}

func TestRunPlaintextNeverCorrects(t *testing.T) {
	client := &sequenceClient{responses: []string{"any prose is fine"}}
	p := newTestPipeline(client, 4)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "say something"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Report.Valid || result.Corrected {
		t.Fatalf("plaintext must validate as-is: %+v", result)
	}
	if result.Format != "plaintext" {
		t.Fatalf("default format not applied: %q", result.Format)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 call, got %d", client.calls)
	}
}

func TestRunUnknownFormatReachesValidator(t *testing.T) {
	client := &sequenceClient{responses: []string{"IDENTIFICATION DIVISION."}}
	p := newTestPipeline(client, -1)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "port this", Format: "cobol"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Format != "cobol" {
		t.Fatalf("explicit format must pass through, got %q", result.Format)
	}
	if result.Report.Valid || result.Report.Kind != validate.KindUnknownFormat {
		t.Fatalf("expected unknown-format classification: %+v", result.Report)
	}
	if result.Output == "" {
		t.Fatalf("best-effort output missing")
	}
}

func TestZeroValueBudgetUsesDefault(t *testing.T) {
	client := &sequenceClient{responses: []string{"never json, not even once"}}
	p := New(Options{
		Client: client,
		Logger: func(string, ...any) {},
	})

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute data", Format: "json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Corrected {
		t.Fatalf("expected exhaustion")
	}
	if want := 1 + correct.DefaultBudget; client.calls != want {
		t.Fatalf("unset budget must mean the default: expected %d calls, got %d", want, client.calls)
	}
}

func TestNegativeBudgetDisablesCorrection(t *testing.T) {
	client := &sequenceClient{responses: []string{"never json, not even once"}}
	p := newTestPipeline(client, -1)

	result, err := p.Run(context.Background(), ingest.Request{Prompt: "compute data", Format: "json"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Report.Valid || result.Corrected {
		t.Fatalf("nothing should have corrected the output: %+v", result.Report)
	}
	if client.calls != 1 {
		t.Fatalf("correction disabled, expected only the initial call, got %d", client.calls)
	}
}

func TestRunStructureMismatchIsCorrected(t *testing.T) {
	client := &sequenceClient{responses: []string{`{"a": 1}`, `[1, 2]`}}
	p := newTestPipeline(client, 4)

	result, err := p.Run(context.Background(), ingest.Request{
		Prompt: "list the ids as a JSON array",
		Format: "json",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Corrected || !result.Report.Valid {
		t.Fatalf("expected corrected array output: %+v", result.Report)
	}
	if len(result.Attempts) != 1 || !result.Attempts[0].Report.Valid {
		t.Fatalf("unexpected attempt trail: %+v", result.Attempts)
	}
	if !strings.HasPrefix(strings.TrimSpace(result.Output), "[") {
		t.Fatalf("expected array output: %q", result.Output)
	}
}
