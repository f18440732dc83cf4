package kaikki

import (
	"slices"
	"testing"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text unchanged", in: "hello world", want: "hello world"},
		{name: "empty string", in: "", want: ""},
		{name: "simple bold tags", in: "<b>word</b>", want: "word"},
		{name: "anchor tag with attributes", in: `<a href="http://example.com">link text</a>`, want: "link text"},
		{name: "self-closing tag", in: "before<br/>after", want: "beforeafter"},
		{name: "wiki link simple", in: "[[word]]", want: "word"},
		{name: "wiki link with display text", in: "[[link|display]]", want: "display"},
		{name: "nested HTML and wiki", in: "<i>[[link|shown]]</i>", want: "shown"},
		{name: "multiple spaces collapsed", in: "word   with   spaces", want: "word with spaces"},
		{name: "newlines collapsed", in: "line one\n\nline two", want: "line one line two"},
		{name: "leading and trailing whitespace trimmed", in: "  hello  ", want: "hello"},
		{name: "multiple wiki links", in: "[[one]] and [[two|2]]", want: "one and 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.in); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "record separator removed", in: "a\x1eb", want: "ab"},
		{name: "unit separator removed", in: "a\x1fb", want: "ab"},
		{name: "tab becomes space", in: "a\tb", want: "a b"},
		{name: "nul removed", in: "a\x00b", want: "ab"},
		{name: "markup still stripped", in: "<b>bold</b>\x1f", want: "bold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanEtymology(t *testing.T) {
	in := "Etymology tree\nFrom <i>Old English</i> [[hūs]].  Etymology tree"
	if got := CleanEtymology(in); got != "From Old English hūs." {
		t.Errorf("CleanEtymology() = %q", got)
	}
}

func TestDeduplicateStrings(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "unique list unchanged", in: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "duplicates removed preserving order", in: []string{"a", "b", "a"}, want: []string{"a", "b"}},
		{name: "all same", in: []string{"x", "x", "x"}, want: []string{"x"}},
		{name: "empty slice returns empty", in: []string{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeduplicateStrings(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("DeduplicateStrings(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if got := DeduplicateStrings(nil); got != nil {
		t.Errorf("DeduplicateStrings(nil) = %v, want nil", got)
	}
}
