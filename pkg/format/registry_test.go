package format

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDefaultLookup(t *testing.T) {
	registry := Default()

	tests := []struct {
		name       string
		wantFamily Family
		wantPrefix string
	}{
		{"json", FamilyData, ""},
		{"html", FamilyMarkup, "<!--"},
		{"plaintext", FamilyText, ""},
		{"python", FamilyCode, "#"},
		{"go", FamilyCode, "//"},
		{"sql", FamilyCode, "--"},
		{"css", FamilyCode, "/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := registry.Lookup(tt.name)
			if !ok {
				t.Fatalf("format %q not found", tt.name)
			}
			if spec.Family != tt.wantFamily {
				t.Fatalf("family = %q, want %q", spec.Family, tt.wantFamily)
			}
			if spec.CommentPrefix != tt.wantPrefix {
				t.Fatalf("comment prefix = %q, want %q", spec.CommentPrefix, tt.wantPrefix)
			}
		})
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	registry := Default()
	for _, name := range []string{"JSON", " json ", "Json"} {
		if _, ok := registry.Lookup(name); !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
	}
	if _, ok := registry.Lookup("cobol"); ok {
		t.Fatalf("unexpected format found")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Default().Names()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("names not sorted: %v", names)
	}
	if len(names) == 0 {
		t.Fatalf("no builtin formats")
	}
}

func TestLoadOverlaysBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formats.yaml")
	content := `formats:
  - name: rust
    family: code
    comment_prefix: "//"
    file_suffix: ".rs"
    keywords: [fn, let, mut]
  - name: json
    family: data
    file_suffix: ".jsonl"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	registry, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rust, ok := registry.Lookup("rust")
	if !ok || rust.Family != FamilyCode || rust.CommentPrefix != "//" {
		t.Fatalf("rust overlay missing or wrong: %#v", rust)
	}
	// Overlay entries replace builtins of the same name.
	js, _ := registry.Lookup("json")
	if js.FileSuffix != ".jsonl" {
		t.Fatalf("json override not applied: %#v", js)
	}
	// Builtins not mentioned in the overlay survive.
	if _, ok := registry.Lookup("python"); !ok {
		t.Fatalf("builtin lost after overlay")
	}
}

func TestLoadRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formats.yaml")
	if err := os.WriteFile(path, []byte("formats:\n  - family: code\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for entry without a name")
	}
}
