package transform

import (
	"encoding/json"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// PlainTransformer renders the cleaned text verbatim. It is also the
// fallback for unknown format names.
type PlainTransformer struct{}

func (PlainTransformer) Render(rep *parse.Representation, _ format.Spec, _ schema.Intent) string {
	if text := strings.TrimSpace(rep.Text); text != "" {
		return text
	}
	if rep.HasStructured {
		if out, err := json.MarshalIndent(rep.Structured, "", "    "); err == nil {
			return string(out)
		}
	}
	if fragments := joinFragments(rep.CodeFragments); fragments != "" {
		return fragments
	}
	return ""
}
