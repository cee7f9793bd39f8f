// Package validate checks rendered output against its requested
// format. Validation is a pure check with one structured result type;
// it never mutates the output and never panics out to callers.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// Kind labels the failure class. Correction prompts key off it.
type Kind string

const (
	KindNone              Kind = ""
	KindDecodeError       Kind = "decode_error"
	KindStructureMismatch Kind = "structure_mismatch"
	KindMarkupStructure   Kind = "markup_structure_error"
	KindCodeSyntax        Kind = "code_syntax_error"
	KindUnknownFormat     Kind = "unknown_format"
	KindUnexpected        Kind = "unexpected_error"
)

// Report is the single result shape for every format family. Line,
// Column, and Offset are 1-based and zero when unknown. FallbackOK
// marks markup output that failed structural checks but is still a
// usable best-effort body.
type Report struct {
	Valid      bool   `json:"valid"`
	Kind       Kind   `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	FallbackOK bool   `json:"fallback_ok,omitempty"`
}

func valid() Report {
	return Report{Valid: true}
}

func invalid(kind Kind, message string) Report {
	return Report{Kind: kind, Message: message}
}

// Validator checks output text against the formats it knows.
type Validator struct {
	registry *format.Registry
}

func NewValidator(registry *format.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks text against formatName. expected constrains the
// top-level JSON container and is ignored for non-data formats.
func (v *Validator) Validate(text, formatName string, expected schema.Container) (report Report) {
	defer func() {
		if r := recover(); r != nil {
			report = invalid(KindUnexpected, fmt.Sprintf("validation panic: %v", r))
		}
	}()

	spec, ok := v.registry.Lookup(formatName)
	if !ok {
		return invalid(KindUnknownFormat, fmt.Sprintf("unknown output format %q", formatName))
	}

	switch spec.Family {
	case format.FamilyData:
		return validateJSON(text, expected)
	case format.FamilyMarkup:
		return validateMarkup(text)
	case format.FamilyCode:
		return validateCode(text, spec)
	case format.FamilyText:
		return valid()
	default:
		return invalid(KindUnknownFormat, fmt.Sprintf("format %q has no validator", formatName))
	}
}

func validateJSON(text string, expected schema.Container) Report {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		report := invalid(KindDecodeError, err.Error())
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			report.Offset = int(syntaxErr.Offset)
			report.Line, report.Column = lineColumn(text, int(syntaxErr.Offset))
			report.Message = fmt.Sprintf("invalid JSON at line %d, column %d: %s",
				report.Line, report.Column, syntaxErr.Error())
		}
		return report
	}

	if expected != schema.ContainerNone {
		actual := schema.ContainerOf(value)
		if actual != expected {
			return invalid(KindStructureMismatch, fmt.Sprintf(
				"expected top-level JSON %s but got %s", expected, containerName(actual)))
		}
	}
	return valid()
}

func containerName(container schema.Container) string {
	if container == schema.ContainerNone {
		return "scalar"
	}
	return string(container)
}

// lineColumn converts a byte offset from a JSON syntax error into
// 1-based line and column numbers.
func lineColumn(text string, offset int) (line, column int) {
	if offset > len(text) {
		offset = len(text)
	}
	prefix := text[:offset]
	line = strings.Count(prefix, "\n") + 1
	if last := strings.LastIndexByte(prefix, '\n'); last >= 0 {
		column = offset - last
	} else {
		column = offset
	}
	if column == 0 {
		column = 1
	}
	return line, column
}

// validateMarkup requires at least one element. Markup that parses but
// has none is flagged invalid yet fallback-usable, since the renderer
// always emits a displayable body.
func validateMarkup(text string) Report {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		report := invalid(KindMarkupStructure, fmt.Sprintf("markup parse failed: %v", err))
		report.FallbackOK = true
		return report
	}
	for _, node := range nodes {
		if hasElement(node) {
			return valid()
		}
	}
	report := invalid(KindMarkupStructure, "no HTML elements found in output")
	report.FallbackOK = true
	return report
}

func hasElement(node *html.Node) bool {
	if node.Type == html.ElementNode {
		return true
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if hasElement(child) {
			return true
		}
	}
	return false
}

// validateCode runs the real parser for Go and a delimiter-balance
// scan for every other language, where a full parser is out of reach.
func validateCode(text string, spec format.Spec) Report {
	// An empty program has no syntax errors. The no-code condition is
	// carried on the output profile, not reported here.
	if strings.TrimSpace(text) == "" {
		return valid()
	}
	if spec.Name == "go" {
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, "output.go", wrapGoSnippet(text), parser.AllErrors); err == nil {
			return valid()
		}
		if _, err := parser.ParseFile(fset, "output.go", text, parser.AllErrors); err != nil {
			return invalid(KindCodeSyntax, err.Error())
		}
		return valid()
	}
	return scanDelimiters(text)
}

// wrapGoSnippet makes bare statements parseable by wrapping them in a
// package clause and function body when the text has neither.
func wrapGoSnippet(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "package ") {
		return text
	}
	if strings.HasPrefix(trimmed, "func ") || strings.HasPrefix(trimmed, "import ") ||
		strings.HasPrefix(trimmed, "type ") || strings.HasPrefix(trimmed, "var ") ||
		strings.HasPrefix(trimmed, "const ") {
		return "package main\n\n" + text
	}
	return "package main\n\nfunc main() {\n" + text + "\n}\n"
}

// scanDelimiters checks bracket balance outside string and comment
// contexts, reporting the position of the first mismatch.
type delimiter struct {
	char byte
	line int
	col  int
}

func scanDelimiters(text string) Report {
	var stack []delimiter
	line, col := 1, 0
	inString := byte(0)
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			line++
			col = 0
			inString = 0
			escaped = false
			continue
		}
		col++

		if inString != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == inString:
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = c
		case '(', '[', '{':
			stack = append(stack, delimiter{c, line, col})
		case ')', ']', '}':
			opener := matchingOpener(c)
			if len(stack) == 0 {
				report := invalid(KindCodeSyntax, fmt.Sprintf(
					"unmatched %q at line %d, column %d", string(c), line, col))
				report.Line, report.Column = line, col
				return report
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.char != opener {
				report := invalid(KindCodeSyntax, fmt.Sprintf(
					"mismatched %q at line %d, column %d: open %q at line %d, column %d",
					string(c), line, col, string(top.char), top.line, top.col))
				report.Line, report.Column = line, col
				return report
			}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		report := invalid(KindCodeSyntax, fmt.Sprintf(
			"unclosed %q opened at line %d, column %d", string(top.char), top.line, top.col))
		report.Line, report.Column = top.line, top.col
		return report
	}
	return valid()
}

func matchingOpener(closer byte) byte {
	switch closer {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}
