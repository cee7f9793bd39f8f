// Package parse normalizes raw model text into the pipeline's
// canonical intermediate representation. Nothing in this package
// returns an error: every failure mode is encoded in the
// representation itself so the validator always has something to
// classify.
package parse

import (
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
)

// Representation is the canonical intermediate form extracted from one
// model response. At most one of Structured, Markup, and CodeFragments
// is the primary payload for a given requested format. A fresh
// instance is produced per attempt; instances are never mutated across
// correction attempts.
type Representation struct {
	// Text is the cleaned plain text, set for plaintext output and for
	// code output that keeps its explanation.
	Text string

	// Structured holds a decoded JSON value when HasStructured is set.
	// The flag distinguishes a decoded null from "nothing decoded".
	Structured    any
	HasStructured bool

	// CodeFragments are extracted code regions in document order.
	CodeFragments []string

	// Markup holds markup output, either verbatim model markup or a
	// synthesized minimal skeleton.
	Markup string

	// OutputProfile classifies the cleaned response text.
	OutputProfile schema.Profile

	// ParseFailed is set when no JSON could be decoded from a
	// data-format response and Structured holds the synthesized
	// error document instead of model data.
	ParseFailed bool

	// Mismatch is set when a structured value decoded fine but its
	// container kind disagrees with what the caller asked for. The
	// value is kept so validation and correction can act on it.
	Mismatch bool

	// NoCode is set when the caller wanted code only and no fragment
	// could be extracted. The fragment list stays empty; nothing is
	// fabricated.
	NoCode bool
}

// Clone returns an independent copy. The heuristic corrector works on
// a copy so the original attempt's representation stays intact.
func (r *Representation) Clone() *Representation {
	clone := *r
	if r.CodeFragments != nil {
		clone.CodeFragments = append([]string(nil), r.CodeFragments...)
	}
	return &clone
}
