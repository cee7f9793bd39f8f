package parse

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

const excerptLimit = 500

// Options carries the request-scoped facts extraction depends on.
type Options struct {
	Intent schema.Intent

	// Expected is the container kind derived once from the original
	// instruction text and input profile; see schema.ExpectedContainer.
	Expected schema.Container
}

// Parse cleans raw model text and extracts the representation shape
// the requested format needs. Unrecognized formats fall through to the
// plaintext path. Parse never fails; unusable input yields an
// error-shaped or synthesized payload instead.
func Parse(raw string, spec format.Spec, opts Options) *Representation {
	cleaned := Cleanup(raw)
	rep := &Representation{}

	switch spec.Family {
	case format.FamilyData:
		parseData(cleaned, rep, opts.Expected)
	case format.FamilyMarkup:
		parseMarkup(cleaned, rep)
	case format.FamilyCode:
		// Extraction needs the fences Cleanup strips, so it works on
		// the raw text; only the prose keeps the cleaned form.
		parseCode(raw, cleaned, rep, opts.Intent)
	default:
		rep.Text = cleaned
	}

	return rep
}

func parseData(cleaned string, rep *Representation, expected schema.Container) {
	if value, ok := ExtractJSON(cleaned); ok {
		rep.Structured = value
		rep.HasStructured = true
		if expected != schema.ContainerNone && schema.ContainerOf(value) != expected {
			rep.Mismatch = true
		}
		return
	}

	// Balanced-region scan found nothing; try the whole text before
	// synthesizing an error document.
	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err == nil {
		rep.Structured = value
		rep.HasStructured = true
		if expected != schema.ContainerNone && schema.ContainerOf(value) != expected {
			rep.Mismatch = true
		}
		return
	}

	rep.Structured = map[string]any{
		"error":    "could not parse JSON from model response",
		"raw_text": excerpt(cleaned),
	}
	rep.HasStructured = true
	rep.ParseFailed = true
}

func parseMarkup(cleaned string, rep *Representation) {
	if hasMarkupElement(cleaned) {
		rep.Markup = cleaned
		return
	}
	rep.Markup = minimalMarkup(cleaned)
}

func parseCode(raw, cleaned string, rep *Representation, intent schema.Intent) {
	fragments := ExtractCode(raw)

	if intent == schema.IntentCodeOnly {
		rep.CodeFragments = fragments
		if len(fragments) == 0 {
			rep.NoCode = true
		}
		return
	}

	rep.CodeFragments = fragments
	rep.Text = cleaned
}

// hasMarkupElement reports whether the text parses to at least one
// element node when treated as a body fragment.
func hasMarkupElement(text string) bool {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return false
	}
	for _, node := range nodes {
		if containsElement(node) {
			return true
		}
	}
	return false
}

func containsElement(node *html.Node) bool {
	if node.Type == html.ElementNode {
		return true
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if containsElement(child) {
			return true
		}
	}
	return false
}

// minimalMarkup wraps tag-free text in a single-paragraph skeleton,
// escaping the content and mapping line breaks to <br>.
func minimalMarkup(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<html><body><p>" + escaped + "</p></body></html>"
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
