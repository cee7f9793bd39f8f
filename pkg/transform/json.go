package transform

import (
	"encoding/json"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// JSONTransformer renders structured data as indented JSON. When the
// representation carries no structured value it wraps the cleaned text
// in a result envelope so the output is still valid JSON.
type JSONTransformer struct{}

func (JSONTransformer) Render(rep *parse.Representation, _ format.Spec, _ schema.Intent) string {
	if rep.HasStructured {
		if out, err := json.MarshalIndent(rep.Structured, "", "    "); err == nil {
			return string(out)
		}
		return errorDocument("could not serialize structured data")
	}

	text := strings.TrimSpace(rep.Text)
	if text == "" {
		return errorDocument("no content to serialize")
	}
	// The text itself may be a JSON document the extractor did not
	// surface. Prefer it over a string-wrapped envelope.
	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		if out, err := json.MarshalIndent(value, "", "    "); err == nil {
			return string(out)
		}
	}
	out, err := json.MarshalIndent(map[string]any{"result": text}, "", "    ")
	if err != nil {
		return errorDocument("could not serialize text content")
	}
	return string(out)
}

// errorDocument builds a valid JSON error body by hand so that this
// path cannot itself fail.
func errorDocument(message string) string {
	encoded, err := json.Marshal(message)
	if err != nil {
		encoded = []byte(`"serialization error"`)
	}
	return "{\n    \"error\": " + string(encoded) + "\n}"
}
