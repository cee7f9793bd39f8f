// Package format holds the static registry of supported output
// formats. The registry is built once at startup and is read-only for
// the process lifetime, so concurrent readers need no synchronization.
package format

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family selects the default rendering and validation behavior for a
// format. Code languages all share one family; their differences live
// entirely in the registry entry (comment prefix, keywords).
type Family string

const (
	FamilyData   Family = "data"
	FamilyMarkup Family = "markup"
	FamilyCode   Family = "code"
	FamilyText   Family = "text"
)

// Spec describes one supported output format.
type Spec struct {
	Name          string   `yaml:"name"`
	Family        Family   `yaml:"family"`
	CommentPrefix string   `yaml:"comment_prefix,omitempty"`
	CommentSuffix string   `yaml:"comment_suffix,omitempty"`
	FileSuffix    string   `yaml:"file_suffix,omitempty"`
	Keywords      []string `yaml:"keywords,omitempty"`
}

// Registry maps case-insensitive format names to their specs.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a registry from the given specs. Later entries
// with the same name win.
func NewRegistry(specs []Spec) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, spec := range specs {
		r.specs[strings.ToLower(spec.Name)] = spec
	}
	return r
}

// Default returns the registry of built-in formats.
func Default() *Registry {
	return NewRegistry(builtinSpecs)
}

// Load reads additional format specs from a YAML file and overlays
// them onto the built-ins. Adding a format is one entry here; a custom
// renderer beyond the family default is a Transformer registration.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Formats []Spec `yaml:"formats"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse format registry %s: %w", path, err)
	}

	for _, spec := range file.Formats {
		if spec.Name == "" {
			return nil, fmt.Errorf("format registry %s: entry missing name", path)
		}
		if spec.Family == "" {
			return nil, fmt.Errorf("format registry %s: format %q missing family", path, spec.Name)
		}
	}

	return NewRegistry(append(append([]Spec{}, builtinSpecs...), file.Formats...)), nil
}

// Lookup returns the spec for a format name, case-insensitively.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(name))]
	return spec, ok
}

// Names returns all registered format names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builtinSpecs is the fixed table of supported formats. The comment
// prefix is applied per line when a code renderer has to fall back to
// comment-wrapping explanatory text; the suffix closes block comments.
var builtinSpecs = []Spec{
	{Name: "plaintext", Family: FamilyText, FileSuffix: ".txt"},
	{Name: "json", Family: FamilyData, FileSuffix: ".json"},
	{
		Name: "html", Family: FamilyMarkup, FileSuffix: ".html",
		CommentPrefix: "<!--", CommentSuffix: " -->",
		Keywords: []string{"html", "head", "body", "div", "p", "span", "a", "img", "table", "tr", "td", "th", "ul", "ol", "li", "form", "input", "button"},
	},
	{
		Name: "python", Family: FamilyCode, CommentPrefix: "#", FileSuffix: ".py",
		Keywords: []string{"def", "class", "import", "for", "while", "if", "else", "try", "except", "finally", "return", "with", "lambda", "yield"},
	},
	{
		Name: "javascript", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".js",
		Keywords: []string{"const", "let", "var", "function", "if", "else", "for", "while", "return", "new", "class", "this", "try", "catch"},
	},
	{
		Name: "typescript", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".ts",
		Keywords: []string{"const", "let", "var", "function", "interface", "type", "if", "else", "for", "while", "return", "class"},
	},
	{
		Name: "htmljavascript", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".html",
		Keywords: []string{"div", "input", "function", "const", "let", "var", "<script>", "</script>", "<html>", "document", "onclick"},
	},
	{
		Name: "java", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".java",
		Keywords: []string{"public", "class", "static", "void", "int", "String", "if", "else", "for", "while", "try", "catch", "return", "new", "import", "package"},
	},
	{
		Name: "c", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".c",
		Keywords: []string{"int", "float", "char", "if", "else", "for", "while", "do", "return", "struct", "typedef", "#include"},
	},
	{
		Name: "c++", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".cpp",
		Keywords: []string{"int", "float", "double", "char", "class", "public", "private", "if", "else", "for", "while", "return", "new", "delete", "#include"},
	},
	{
		Name: "c#", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".cs",
		Keywords: []string{"class", "public", "static", "void", "int", "string", "if", "else", "for", "foreach", "return", "new", "using", "namespace"},
	},
	{
		Name: "go", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".go",
		Keywords: []string{"package", "import", "func", "var", "const", "if", "else", "for", "range", "return", "go", "chan", "select", "defer"},
	},
	{
		Name: "ruby", Family: FamilyCode, CommentPrefix: "#", FileSuffix: ".rb",
		Keywords: []string{"def", "class", "module", "if", "else", "unless", "while", "for", "do", "end", "return", "require", "puts"},
	},
	{
		Name: "php", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".php",
		Keywords: []string{"<?php", "echo", "if", "else", "elseif", "while", "for", "foreach", "function", "class", "return"},
	},
	{
		Name: "swift", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".swift",
		Keywords: []string{"let", "var", "func", "class", "struct", "enum", "if", "else", "for", "in", "while", "return", "import", "protocol"},
	},
	{
		Name: "kotlin", Family: FamilyCode, CommentPrefix: "//", FileSuffix: ".kt",
		Keywords: []string{"val", "var", "fun", "class", "object", "if", "else", "for", "in", "while", "return", "package", "import"},
	},
	{
		Name: "r", Family: FamilyCode, CommentPrefix: "#", FileSuffix: ".r",
		Keywords: []string{"if", "else", "for", "in", "while", "repeat", "function", "return", "<-", "TRUE", "FALSE", "NULL"},
	},
	{
		Name: "bash", Family: FamilyCode, CommentPrefix: "#", FileSuffix: ".sh",
		Keywords: []string{"if", "then", "else", "fi", "for", "in", "do", "done", "while", "case", "esac", "function", "echo", "#!/bin/bash"},
	},
	{
		Name: "css", Family: FamilyCode, CommentPrefix: "/*", CommentSuffix: " */", FileSuffix: ".css",
		Keywords: []string{"color", "background", "font", "margin", "padding", "border", "display", "position"},
	},
	{
		Name: "sql", Family: FamilyCode, CommentPrefix: "--", FileSuffix: ".sql",
		Keywords: []string{"SELECT", "FROM", "WHERE", "INSERT", "UPDATE", "DELETE", "CREATE", "TABLE", "JOIN", "GROUP BY", "ORDER BY"},
	},
}
