package schema

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want Intent
		ok   bool
	}{
		{"code_only", IntentCodeOnly, true},
		{"CODE-ONLY", IntentCodeOnly, true},
		{"justcode", IntentCodeOnly, true},
		{"executable code", IntentCodeOnly, true},
		{"code_with_explanation", IntentCodeWithExplanation, true},
		{"documented", IntentCodeWithExplanation, true},
		{"with comments", IntentCodeWithExplanation, true},
		{"", IntentCodeWithExplanation, false},
		{"gibberish", IntentCodeWithExplanation, false},
	}

	for _, tt := range tests {
		got, ok := ParseIntent(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestContainerOf(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  Container
	}{
		{"object", map[string]any{"a": 1}, ContainerObject},
		{"array", []any{1, 2}, ContainerArray},
		{"string", "x", ContainerNone},
		{"number", float64(3), ContainerNone},
		{"nil", nil, ContainerNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainerOf(tt.value); got != tt.want {
				t.Fatalf("ContainerOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpectedContainer(t *testing.T) {
	tests := []struct {
		prompt string
		want   Container
	}{
		{"give me a JSON array of users", ContainerArray},
		{"return a JSON object with fields", ContainerObject},
		{"an object inside an array", ContainerArray},
		{"no structure named", ContainerNone},
	}

	for _, tt := range tests {
		if got := ExpectedContainer(tt.prompt); got != tt.want {
			t.Fatalf("ExpectedContainer(%q) = %q, want %q", tt.prompt, got, tt.want)
		}
	}
}
