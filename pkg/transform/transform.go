// Package transform renders a canonical representation into final
// output text for a requested format. Renderers never fail: when the
// representation lacks what the format wants, they degrade to the
// closest faithful rendering rather than return an error.
package transform

import (
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// Transformer renders one format family.
type Transformer interface {
	// Render produces final output text. It must not mutate rep.
	Render(rep *parse.Representation, spec format.Spec, intent schema.Intent) string
}

// Registry maps format families to transformers. Lookups for formats
// with no dedicated transformer fall back to plaintext.
type Registry struct {
	formats  *format.Registry
	families map[format.Family]Transformer
	fallback Transformer
}

// NewRegistry builds the standard transformer set over the given
// format registry.
func NewRegistry(formats *format.Registry) *Registry {
	fallback := PlainTransformer{}
	return &Registry{
		formats: formats,
		families: map[format.Family]Transformer{
			format.FamilyData:   JSONTransformer{},
			format.FamilyMarkup: HTMLTransformer{},
			format.FamilyCode:   CodeTransformer{},
			format.FamilyText:   fallback,
		},
		fallback: fallback,
	}
}

// Render resolves the format name and renders rep with the matching
// transformer. Unknown names render as plaintext.
func (r *Registry) Render(rep *parse.Representation, formatName string, intent schema.Intent) string {
	spec, ok := r.formats.Lookup(formatName)
	if !ok {
		return r.fallback.Render(rep, format.Spec{Name: formatName, Family: format.FamilyText}, intent)
	}
	transformer, ok := r.families[spec.Family]
	if !ok {
		transformer = r.fallback
	}
	return transformer.Render(rep, spec, intent)
}
