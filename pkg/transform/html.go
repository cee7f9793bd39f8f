package transform

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// HTMLTransformer renders markup output. Preference order: markup the
// model already produced, then a table built from structured records,
// then key/value rows for a single object, then escaped paragraphs.
type HTMLTransformer struct{}

func (HTMLTransformer) Render(rep *parse.Representation, _ format.Spec, _ schema.Intent) string {
	if markup := strings.TrimSpace(rep.Markup); markup != "" {
		return markup
	}

	if rep.HasStructured {
		if records, ok := recordSlice(rep.Structured); ok {
			return renderTable(records)
		}
		if record, ok := rep.Structured.(map[string]any); ok {
			return renderKeyValue(record)
		}
	}

	text := strings.TrimSpace(rep.Text)
	if text == "" {
		return "<p>No data available.</p>"
	}
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// recordSlice reports whether value is a non-empty slice of objects.
func recordSlice(value any) ([]map[string]any, bool) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records = append(records, record)
	}
	return records, true
}

// renderTable builds a table with one column per key of the first
// record, sorted for deterministic output. Records missing a key
// render an empty cell.
func renderTable(records []map[string]any) string {
	keys := make([]string, 0, len(records[0]))
	for key := range records[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<table>\n<tr>")
	for _, key := range keys {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(key))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>\n")

	for _, record := range records {
		sb.WriteString("<tr>")
		for _, key := range keys {
			sb.WriteString("<td>")
			if cell, ok := record[key]; ok {
				sb.WriteString(html.EscapeString(cellText(cell)))
			}
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// renderKeyValue builds a two-column table from a single object.
func renderKeyValue(record map[string]any) string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<table>\n")
	for _, key := range keys {
		sb.WriteString("<tr><th>")
		sb.WriteString(html.EscapeString(key))
		sb.WriteString("</th><td>")
		sb.WriteString(html.EscapeString(cellText(record[key])))
		sb.WriteString("</td></tr>\n")
	}
	sb.WriteString("</table>")
	return sb.String()
}

func cellText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
