package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

func newTestRegistry() *Registry {
	return NewRegistry(format.Default())
}

func TestJSONRenderStructured(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Structured: map[string]any{"a": float64(1)}, HasStructured: true}

	out := registry.Render(rep, "json", "")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if decoded["a"] != float64(1) {
		t.Fatalf("unexpected decoded value: %#v", decoded)
	}
	if !strings.Contains(out, "    ") {
		t.Fatalf("expected four-space indentation:\n%s", out)
	}
}

func TestJSONRenderWrapsPlainText(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Text: "just words"}

	out := registry.Render(rep, "json", "")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["result"] != "just words" {
		t.Fatalf("expected result envelope, got %#v", decoded)
	}
}

func TestJSONRenderParsesTextBeforeWrapping(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Text: `{"a":1}`}

	out := registry.Render(rep, "json", "")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, wrapped := decoded["result"]; wrapped {
		t.Fatalf("JSON text should render as the parsed document, not an envelope: %s", out)
	}
	if decoded["a"] != float64(1) {
		t.Fatalf("unexpected document: %#v", decoded)
	}
}

func TestJSONRenderEmptyDegradesToErrorDocument(t *testing.T) {
	registry := newTestRegistry()
	out := registry.Render(&parse.Representation{}, "json", "")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("error document is not valid JSON: %v", err)
	}
	if decoded["error"] == "" {
		t.Fatalf("expected error field, got %#v", decoded)
	}
}

func TestHTMLRenderRecordsAsTable(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{
		Structured: []any{
			map[string]any{"a": float64(1)},
			map[string]any{"a": float64(2)},
		},
		HasStructured: true,
	}

	out := registry.Render(rep, "html", "")

	if strings.Count(out, "<th>") != 1 || !strings.Contains(out, "<th>a</th>") {
		t.Fatalf("expected exactly one header cell for key a:\n%s", out)
	}
	if strings.Count(out, "<td>") != 2 {
		t.Fatalf("expected two data cells:\n%s", out)
	}
}

func TestHTMLRenderSortsHeadersAndFillsMissingKeys(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{
		Structured: []any{
			map[string]any{"b": "x", "a": "y"},
			map[string]any{"a": "z"},
		},
		HasStructured: true,
	}

	out := registry.Render(rep, "html", "")

	if !strings.Contains(out, "<tr><th>a</th><th>b</th></tr>") {
		t.Fatalf("headers not sorted:\n%s", out)
	}
	if !strings.Contains(out, "<tr><td>z</td><td></td></tr>") {
		t.Fatalf("missing key should render empty cell:\n%s", out)
	}
}

func TestHTMLRenderSingleObjectAsKeyValue(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Structured: map[string]any{"name": "alice"}, HasStructured: true}

	out := registry.Render(rep, "html", "")
	if !strings.Contains(out, "<th>name</th><td>alice</td>") {
		t.Fatalf("unexpected key-value table:\n%s", out)
	}
}

func TestHTMLRenderMarkupPassesThrough(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Markup: "<p>already html</p>"}

	if out := registry.Render(rep, "html", ""); out != "<p>already html</p>" {
		t.Fatalf("markup not passed through: %q", out)
	}
}

func TestHTMLRenderEscapesText(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Text: "a < b\nsecond"}

	out := registry.Render(rep, "html", "")
	if out != "<p>a &lt; b<br>second</p>" {
		t.Fatalf("unexpected paragraph: %q", out)
	}
}

func TestHTMLRenderEmpty(t *testing.T) {
	registry := newTestRegistry()
	if out := registry.Render(&parse.Representation{}, "html", ""); out != "<p>No data available.</p>" {
		t.Fatalf("unexpected empty rendering: %q", out)
	}
}

func TestCodeRenderCodeOnlyJoinsFragments(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{
		Text:          "Some explanation.",
		CodeFragments: []string{"def f():\n    return 1", "def g():\n    return 2"},
	}

	out := registry.Render(rep, "python", schema.IntentCodeOnly)
	if out != "def f():\n    return 1\n\ndef g():\n    return 2" {
		t.Fatalf("unexpected code-only output: %q", out)
	}
}

func TestCodeRenderCommentsExplanation(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{
		Text:          "First line.\nSecond line.",
		CodeFragments: []string{"x = 1"},
	}

	out := registry.Render(rep, "python", schema.IntentCodeWithExplanation)
	if !strings.Contains(out, "# First line.") || !strings.Contains(out, "# Second line.") {
		t.Fatalf("explanation not comment-wrapped:\n%s", out)
	}
	if !strings.Contains(out, "x = 1") {
		t.Fatalf("code fragment lost:\n%s", out)
	}
}

func TestCodeRenderFragmentsBeforeExplanation(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{
		Text:          "This prints a greeting.",
		CodeFragments: []string{"print('hi')"},
	}

	out := registry.Render(rep, "python", schema.IntentCodeWithExplanation)
	code := strings.Index(out, "print('hi')")
	explanation := strings.Index(out, "# This prints a greeting.")
	if code < 0 || explanation < 0 {
		t.Fatalf("missing code or explanation:\n%s", out)
	}
	if code > explanation {
		t.Fatalf("code must come before the explanation:\n%s", out)
	}
}

func TestCodeRenderCommentSyntaxPerLanguage(t *testing.T) {
	registry := newTestRegistry()
	rep := &parse.Representation{Text: "note"}

	tests := []struct {
		format string
		want   string
	}{
		{"sql", "-- note"},
		{"go", "// note"},
		{"css", "/* note */"},
	}
	for _, tt := range tests {
		out := registry.Render(rep, tt.format, schema.IntentCodeWithExplanation)
		if out != tt.want {
			t.Fatalf("format %s: got %q, want %q", tt.format, out, tt.want)
		}
	}
}

func TestPlainRender(t *testing.T) {
	registry := newTestRegistry()

	if out := registry.Render(&parse.Representation{Text: "  padded  "}, "plaintext", ""); out != "padded" {
		t.Fatalf("unexpected plaintext: %q", out)
	}

	rep := &parse.Representation{Structured: []any{float64(1)}, HasStructured: true}
	out := registry.Render(rep, "plaintext", "")
	if !strings.Contains(out, "1") {
		t.Fatalf("structured fallback missing: %q", out)
	}
}

func TestUnknownFormatFallsBackToPlain(t *testing.T) {
	registry := newTestRegistry()
	if out := registry.Render(&parse.Representation{Text: "hello"}, "cobol", ""); out != "hello" {
		t.Fatalf("unexpected fallback output: %q", out)
	}
}
