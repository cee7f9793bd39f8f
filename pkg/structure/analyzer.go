// Package structure classifies text blobs into confidence-scored
// profiles. Classification is deterministic, side-effect-free, and
// total: input that defeats every heuristic yields a low-confidence
// unknown profile, never an error.
//
// Confidence values are fixed constants chosen per classification
// branch. They are not computed from a model; they exist to bias
// downstream decisions such as whether to consult the model for format
// deduction.
package structure

import (
	"encoding/json"
	"encoding/xml"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// Per-branch confidence constants.
const (
	confidenceUnknown       = 0.1
	confidenceValidJSON     = 0.95
	confidenceJSONLike      = 0.6
	confidenceInvalidJSON   = 0.2
	confidenceCSV           = 0.9
	confidenceForm          = 0.9
	confidenceFormDegraded  = 0.5
	confidenceXML           = 0.8
	confidencePlainText     = 0.7
	confidenceMarkupTable   = 0.9
	confidenceMarkupList    = 0.8
	confidenceMarkupPara    = 0.8
	confidenceMarkupGeneric = 0.7
	confidenceMarkupNone    = 0.2
	confidenceCode          = 0.8
	confidenceNoCode        = 0.2
	confidenceTextList      = 0.7
	confidenceTextTable     = 0.6
	confidenceTextPara      = 0.8
)

var (
	indentation   = regexp.MustCompile(`(?m)^( {2,}|\t+)`)
	listMarker    = regexp.MustCompile(`(?m)^\s*[-*]\s`)
	numberedItem  = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	pipeTableLike = regexp.MustCompile(`\|.*?\|.*?\|`)
)

var tabularHints = []string{"table", "tabular", "row", "column"}
var listHints = []string{"list", "item", "number", "bullet"}

// Analyzer classifies inbound payloads and candidate model responses.
type Analyzer struct {
	registry *format.Registry
}

// NewAnalyzer builds an analyzer over the given format registry. The
// registry supplies the keyword lists used by code-likeness checks.
func NewAnalyzer(registry *format.Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// AnalyzeInput classifies a request payload using its declared content
// type and, for untyped text, keyword and indentation heuristics.
func (a *Analyzer) AnalyzeInput(text, contentType string) schema.Profile {
	profile := schema.NewProfile(schema.KindUnknown, confidenceUnknown)
	ct := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case ct == "application/json":
		a.classifyJSONInput(text, &profile)
	case ct == "text/csv":
		a.classifyCSVInput(text, &profile)
	case ct == "application/x-www-form-urlencoded":
		a.classifyFormInput(text, &profile)
	case ct == "application/xml" || ct == "text/xml":
		a.classifyXMLInput(text, &profile)
	case ct == "" || strings.HasPrefix(ct, "text/plain"):
		a.classifyPlainInput(text, &profile)
	default:
		profile.Kind = schema.KindOtherInput
	}

	return profile
}

func (a *Analyzer) classifyJSONInput(text string, profile *schema.Profile) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		profile.Kind = schema.KindJSONLikeInput
		profile.Confidence = confidenceJSONLike
		profile.Features["is_valid_json"] = false
		return
	}
	profile.Kind = schema.KindJSONInput
	profile.Confidence = confidenceValidJSON
	profile.Features["is_valid_json"] = true
	if container := schema.ContainerOf(value); container != schema.ContainerNone {
		profile.Features["json_type"] = string(container)
	}
}

func (a *Analyzer) classifyCSVInput(text string, profile *schema.Profile) {
	profile.Kind = schema.KindCSVInput
	profile.Confidence = confidenceCSV

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	profile.Metadata["csv_headers"] = headers
	profile.Features["column_count"] = len(headers)
	profile.Features["row_count"] = len(lines) - 1

	if len(lines) > 1 {
		want := len(strings.Split(lines[1], ","))
		consistent := true
		for _, line := range lines[1:] {
			if len(strings.Split(line, ",")) != want {
				consistent = false
				break
			}
		}
		profile.Features["is_consistent_columns"] = consistent
	}
}

func (a *Analyzer) classifyFormInput(text string, profile *schema.Profile) {
	profile.Kind = schema.KindFormInput
	profile.Confidence = confidenceForm

	values, err := url.ParseQuery(text)
	if err != nil {
		profile.Confidence = confidenceFormDegraded
		return
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	profile.Metadata["form_keys"] = keys
	profile.Features["key_value_pair_count"] = len(values)
}

func (a *Analyzer) classifyXMLInput(text string, profile *schema.Profile) {
	profile.Kind = schema.KindXMLInput
	profile.Confidence = confidenceXML

	decoder := xml.NewDecoder(strings.NewReader(text))
	for {
		token, err := decoder.Token()
		if err != nil {
			profile.Features["is_valid_xml"] = false
			profile.Confidence = 0.4
			return
		}
		if _, ok := token.(xml.StartElement); ok {
			profile.Features["has_root_element"] = true
			return
		}
	}
}

func (a *Analyzer) classifyPlainInput(text string, profile *schema.Profile) {
	profile.Confidence = confidencePlainText
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, tabularHints):
		profile.Kind = schema.KindTabularText
	case containsAny(lower, listHints):
		profile.Kind = schema.KindListText
	case a.isCodeLike(text):
		profile.Kind = schema.KindCodeLikeText
		profile.Features["keywords"] = a.matchedKeywords(text)
	default:
		profile.Kind = schema.KindUnstructured
	}
}

// AnalyzeOutput classifies a candidate model response, aware of the
// format the caller asked for. Unknown format names get the
// best-guess branch.
func (a *Analyzer) AnalyzeOutput(text, requestedFormat string) schema.Profile {
	profile := schema.NewProfile(schema.KindUnknown, confidenceUnknown)

	spec, ok := a.registry.Lookup(requestedFormat)
	if !ok {
		a.classifyUnknownOutput(text, &profile)
		return profile
	}

	switch spec.Family {
	case format.FamilyData:
		a.classifyJSONOutput(text, &profile)
	case format.FamilyMarkup:
		a.classifyMarkupOutput(text, &profile)
	case format.FamilyCode:
		a.classifyCodeOutput(text, &profile)
	case format.FamilyText:
		a.classifyTextOutput(text, &profile)
	default:
		a.classifyUnknownOutput(text, &profile)
	}

	return profile
}

func (a *Analyzer) classifyJSONOutput(text string, profile *schema.Profile) {
	sanitized := parse.SanitizeJSON(text)

	var value any
	if err := json.Unmarshal([]byte(sanitized), &value); err == nil {
		profile.Kind = schema.KindValidJSONOutput
		profile.Confidence = confidenceValidJSON
		profile.Features["is_valid_json"] = true
		if container := schema.ContainerOf(value); container != schema.ContainerNone {
			profile.Features["json_type"] = string(container)
		}
		return
	}

	profile.Features["is_valid_json"] = false
	if isJSONLike(sanitized) {
		profile.Kind = schema.KindJSONLikeOutput
		profile.Confidence = confidenceJSONLike
		return
	}
	profile.Kind = schema.KindInvalidJSONOutput
	profile.Confidence = confidenceInvalidJSON
}

func (a *Analyzer) classifyMarkupOutput(text string, profile *schema.Profile) {
	doc := parseFragment(text)
	if doc == nil {
		profile.Kind = schema.KindHTMLParseFailed
		profile.Confidence = confidenceMarkupNone
		return
	}

	if table := findElement(doc, "table"); table != nil {
		profile.Kind = schema.KindHTMLTableOutput
		profile.Confidence = confidenceMarkupTable
		profile.Features["has_table"] = true
		describeTable(table, profile)
		return
	}
	if findElement(doc, "ul") != nil || findElement(doc, "ol") != nil {
		profile.Kind = schema.KindHTMLListOutput
		profile.Confidence = confidenceMarkupList
		profile.Features["has_list"] = true
		return
	}
	if findElement(doc, "p") != nil {
		profile.Kind = schema.KindHTMLParagraphOutput
		profile.Confidence = confidenceMarkupPara
		profile.Features["has_paragraphs"] = true
		return
	}
	if findElement(doc, "") != nil {
		profile.Kind = schema.KindGenericHTMLOutput
		profile.Confidence = confidenceMarkupGeneric
		return
	}
	profile.Kind = schema.KindHTMLParseFailed
	profile.Confidence = confidenceMarkupNone
}

func (a *Analyzer) classifyCodeOutput(text string, profile *schema.Profile) {
	if a.isCodeLike(text) {
		if fragments := parse.ExtractCode(text); len(fragments) > 0 {
			profile.Kind = schema.KindCodeOutput
			profile.Confidence = confidenceCode
			profile.Metadata["code_fragment_count"] = len(fragments)
			profile.Features["keywords"] = a.matchedKeywords(text)
			return
		}
	}
	profile.Kind = schema.KindNoCodeOutput
	profile.Confidence = confidenceNoCode
}

func (a *Analyzer) classifyTextOutput(text string, profile *schema.Profile) {
	switch {
	case listMarker.MatchString(text) || numberedItem.MatchString(text):
		profile.Kind = schema.KindTextListOutput
		profile.Confidence = confidenceTextList
	case pipeTableLike.MatchString(text):
		profile.Kind = schema.KindTextTableOutput
		profile.Confidence = confidenceTextTable
	default:
		profile.Kind = schema.KindTextParagraph
		profile.Confidence = confidenceTextPara
	}
}

func (a *Analyzer) classifyUnknownOutput(text string, profile *schema.Profile) {
	sanitized := parse.SanitizeJSON(text)
	switch {
	case isJSONLike(sanitized):
		profile.Kind = schema.KindJSONLikeOutput
		profile.Confidence = confidenceJSONLike
	case isHTMLLike(text):
		profile.Kind = schema.KindHTMLLikeOutput
		profile.Confidence = confidenceJSONLike
	case a.isCodeLike(text):
		profile.Kind = schema.KindCodeLikeOutput
		profile.Confidence = confidenceJSONLike
	}
}

// isCodeLike matches registry keywords for any code format, or
// leading indentation.
func (a *Analyzer) isCodeLike(text string) bool {
	if len(a.matchedKeywords(text)) > 0 {
		return true
	}
	return indentation.MatchString(text)
}

// matchedKeywords collects code-format keywords present in the text,
// deduplicated, in registry order.
func (a *Analyzer) matchedKeywords(text string) []string {
	seen := make(map[string]bool)
	var matched []string
	for _, name := range a.registry.Names() {
		spec, _ := a.registry.Lookup(name)
		if spec.Family != format.FamilyCode {
			continue
		}
		for _, keyword := range spec.Keywords {
			if !seen[keyword] && strings.Contains(text, keyword) {
				seen[keyword] = true
				matched = append(matched, keyword)
			}
		}
	}
	return matched
}

// isJSONLike is the lighter-weight check used when a decode fails:
// the text must start and end with a bracket and every bracket must
// balance.
func isJSONLike(text string) bool {
	wrapped := (strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}")) ||
		(strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"))
	if !wrapped {
		return false
	}

	var stack []byte
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{', '[':
			stack = append(stack, text[i])
		case '}', ']':
			if len(stack) == 0 {
				return false
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if (text[i] == '}' && top != '{') || (text[i] == ']' && top != '[') {
				return false
			}
		}
	}
	return len(stack) == 0
}

func isHTMLLike(text string) bool {
	lower := strings.ToLower(text)
	for _, tag := range []string{"<html", "<body", "<div", "<table", "<p"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// parseFragment parses text as a body fragment and returns a synthetic
// root holding the parsed nodes, or nil on parser failure.
func parseFragment(text string) *html.Node {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return nil
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, node := range nodes {
		node.Parent = nil
		node.PrevSibling = nil
		node.NextSibling = nil
		root.AppendChild(node)
	}
	return root
}

// findElement returns the first element named tag in document order,
// or any element at all when tag is empty.
func findElement(node *html.Node, tag string) *html.Node {
	if node.Type == html.ElementNode && (tag == "" || node.Data == tag) {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// describeTable records header names and row/column counts for a
// parsed table element.
func describeTable(table *html.Node, profile *schema.Profile) {
	var headers []string
	for th := findElement(table, "th"); th != nil; th = nextElement(th, "th") {
		headers = append(headers, strings.TrimSpace(textOf(th)))
	}

	rowCount := countElements(table, "tr")
	if len(headers) > 0 && rowCount > 0 {
		rowCount--
	}

	colCount := len(headers)
	if colCount == 0 {
		if tr := findElement(table, "tr"); tr != nil {
			colCount = countElements(tr, "td")
		}
	}

	profile.Metadata["html_table_headers"] = headers
	profile.Metadata["html_table_row_count"] = rowCount
	profile.Metadata["html_table_col_count"] = colCount
}

// nextElement walks document order after node looking for tag,
// without revisiting node's own subtree.
func nextElement(node *html.Node, tag string) *html.Node {
	for current := node; current != nil; {
		if current.NextSibling != nil {
			current = current.NextSibling
			if found := findElement(current, tag); found != nil {
				return found
			}
			continue
		}
		current = current.Parent
	}
	return nil
}

func countElements(node *html.Node, tag string) int {
	count := 0
	if node.Type == html.ElementNode && node.Data == tag {
		count++
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		count += countElements(child, tag)
	}
	return count
}

func textOf(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textOf(child))
	}
	return sb.String()
}
