package transform

import (
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/parse"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// CodeTransformer renders code output. The comment syntax comes from
// the format spec, so one transformer serves every code language.
type CodeTransformer struct{}

func (CodeTransformer) Render(rep *parse.Representation, spec format.Spec, intent schema.Intent) string {
	fragments := joinFragments(rep.CodeFragments)

	if intent == schema.IntentCodeOnly {
		return fragments
	}

	text := strings.TrimSpace(rep.Text)
	if fragments == "" {
		if text == "" {
			return ""
		}
		return commentWrap(text, spec)
	}
	if text == "" {
		return fragments
	}
	return fragments + "\n\n" + commentWrap(text, spec)
}

func joinFragments(fragments []string) string {
	trimmed := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if f := strings.TrimRight(fragment, "\n"); f != "" {
			trimmed = append(trimmed, f)
		}
	}
	return strings.Join(trimmed, "\n\n")
}

// commentWrap turns prose into comments line by line using the
// format's comment syntax, so explanation text survives inside a
// source file.
func commentWrap(text string, spec format.Spec) string {
	prefix := spec.CommentPrefix
	if prefix == "" {
		prefix = "//"
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = strings.TrimRight(prefix, " ")
			continue
		}
		lines[i] = prefix + " " + line
		if suffix := strings.TrimSpace(spec.CommentSuffix); suffix != "" {
			lines[i] += " " + suffix
		}
	}
	return strings.Join(lines, "\n")
}
