package structure

import (
	"testing"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(format.Default())
}

func TestAnalyzeInput(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name           string
		text           string
		contentType    string
		wantKind       schema.ProfileKind
		wantConfidence float64
	}{
		{"valid json", `{"a": 1}`, "application/json", schema.KindJSONInput, 0.95},
		{"broken json", `{"a": `, "application/json", schema.KindJSONLikeInput, 0.6},
		{"csv", "a,b\n1,2\n3,4", "text/csv", schema.KindCSVInput, 0.9},
		{"form", "a=1&b=2", "application/x-www-form-urlencoded", schema.KindFormInput, 0.9},
		{"xml", "<root><x>1</x></root>", "application/xml", schema.KindXMLInput, 0.8},
		{"tabular text", "give me a table of results", "text/plain", schema.KindTabularText, 0.7},
		{"list text", "give me a bullet list please", "", schema.KindListText, 0.7},
		{"code-like text", "def greet():\n    print('hi')", "", schema.KindCodeLikeText, 0.7},
		{"unstructured", "hello there", "", schema.KindUnstructured, 0.7},
		{"other content type", "GIF89a", "image/gif", schema.KindOtherInput, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := a.AnalyzeInput(tt.text, tt.contentType)
			if profile.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", profile.Kind, tt.wantKind)
			}
			if profile.Confidence != tt.wantConfidence {
				t.Fatalf("confidence = %v, want %v", profile.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestAnalyzeInputCSVMetadata(t *testing.T) {
	a := newTestAnalyzer()
	profile := a.AnalyzeInput("name, age\nalice,30\nbob,41", "text/csv")

	headers, ok := profile.Metadata["csv_headers"].([]string)
	if !ok || len(headers) != 2 || headers[0] != "name" || headers[1] != "age" {
		t.Fatalf("unexpected headers: %#v", profile.Metadata["csv_headers"])
	}
	if profile.Features["row_count"] != 2 {
		t.Fatalf("row_count = %v, want 2", profile.Features["row_count"])
	}
	if profile.Features["is_consistent_columns"] != true {
		t.Fatalf("expected consistent columns")
	}
}

func TestAnalyzeOutputJSON(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name           string
		text           string
		wantKind       schema.ProfileKind
		wantConfidence float64
	}{
		{"valid", `{"a": 1}`, schema.KindValidJSONOutput, 0.95},
		{"fenced valid", "```json\n[1, 2]\n```", schema.KindValidJSONOutput, 0.95},
		{"json-like", `{"a": oops}`, schema.KindJSONLikeOutput, 0.6},
		{"invalid", "plain prose", schema.KindInvalidJSONOutput, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := a.AnalyzeOutput(tt.text, "json")
			if profile.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", profile.Kind, tt.wantKind)
			}
			if profile.Confidence != tt.wantConfidence {
				t.Fatalf("confidence = %v, want %v", profile.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestAnalyzeOutputMarkupPriority(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name     string
		text     string
		wantKind schema.ProfileKind
	}{
		{"table beats list", "<table><tr><td>1</td></tr></table><ul><li>x</li></ul>", schema.KindHTMLTableOutput},
		{"list beats paragraph", "<ul><li>x</li></ul><p>y</p>", schema.KindHTMLListOutput},
		{"paragraph", "<p>hello</p>", schema.KindHTMLParagraphOutput},
		{"generic element", "<div>hello</div>", schema.KindGenericHTMLOutput},
		{"no elements", "plain words only", schema.KindHTMLParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := a.AnalyzeOutput(tt.text, "html")
			if profile.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", profile.Kind, tt.wantKind)
			}
		})
	}
}

func TestAnalyzeOutputTableMetadata(t *testing.T) {
	a := newTestAnalyzer()
	html := "<table><tr><th>name</th><th>age</th></tr><tr><td>alice</td><td>30</td></tr></table>"
	profile := a.AnalyzeOutput(html, "html")

	headers, ok := profile.Metadata["html_table_headers"].([]string)
	if !ok || len(headers) != 2 || headers[0] != "name" {
		t.Fatalf("unexpected table headers: %#v", profile.Metadata["html_table_headers"])
	}
	if profile.Metadata["html_table_row_count"] != 1 {
		t.Fatalf("row count = %v, want 1", profile.Metadata["html_table_row_count"])
	}
	if profile.Metadata["html_table_col_count"] != 2 {
		t.Fatalf("col count = %v, want 2", profile.Metadata["html_table_col_count"])
	}
}

func TestAnalyzeOutputCode(t *testing.T) {
	a := newTestAnalyzer()

	withCode := a.AnalyzeOutput("```python\ndef f():\n    return 1\n```", "python")
	if withCode.Kind != schema.KindCodeOutput || withCode.Confidence != 0.8 {
		t.Fatalf("unexpected profile: %s(%v)", withCode.Kind, withCode.Confidence)
	}
	if withCode.Metadata["code_fragment_count"] != 1 {
		t.Fatalf("fragment count = %v, want 1", withCode.Metadata["code_fragment_count"])
	}

	withoutCode := a.AnalyzeOutput("Sorry, I cannot help with that.", "python")
	if withoutCode.Kind != schema.KindNoCodeOutput || withoutCode.Confidence != 0.2 {
		t.Fatalf("unexpected profile: %s(%v)", withoutCode.Kind, withoutCode.Confidence)
	}
}

func TestAnalyzeOutputText(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name     string
		text     string
		wantKind schema.ProfileKind
	}{
		{"bullet list", "- one\n- two", schema.KindTextListOutput},
		{"numbered list", "1. one\n2. two", schema.KindTextListOutput},
		{"pipe table", "| a | b |\n| 1 | 2 |", schema.KindTextTableOutput},
		{"paragraph", "just a sentence.", schema.KindTextParagraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := a.AnalyzeOutput(tt.text, "plaintext")
			if profile.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", profile.Kind, tt.wantKind)
			}
		})
	}
}

func TestAnalyzeOutputUnknownFormat(t *testing.T) {
	a := newTestAnalyzer()

	profile := a.AnalyzeOutput(`{"a": 1}`, "cobol")
	if profile.Kind != schema.KindJSONLikeOutput {
		t.Fatalf("kind = %q, want %q", profile.Kind, schema.KindJSONLikeOutput)
	}

	profile = a.AnalyzeOutput("<div>x</div>", "cobol")
	if profile.Kind != schema.KindHTMLLikeOutput {
		t.Fatalf("kind = %q, want %q", profile.Kind, schema.KindHTMLLikeOutput)
	}

	profile = a.AnalyzeOutput("???", "cobol")
	if profile.Kind != schema.KindUnknown || profile.Confidence != 0.1 {
		t.Fatalf("unexpected profile: %s(%v)", profile.Kind, profile.Confidence)
	}
}
