package kaikki

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	wikiLinkRe   = regexp.MustCompile(`\[\[([^|\]]*\|)?([^\]]*)\]\]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// StripMarkup removes HTML tags and wiki-style links from s,
// collapses whitespace runs (including newlines) into one space, and trims.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	// Remove HTML tags.
	s = htmlTagRe.ReplaceAllString(s, "")

	// Replace wiki links [[link|display]] → display, [[word]] → word.
	s = wikiLinkRe.ReplaceAllString(s, "$2")

	s = multiSpaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// CleanText strips control characters, then markup. Control characters
// include the U+001E/U+001F separators the tabular format reserves, so
// cleaned text can always be embedded in a multi-value cell.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return StripMarkup(s)
}

// CleanEtymology cleans etymology text and removes the "Etymology tree"
// widget caption Kaikki leaves in the rendered text.
func CleanEtymology(s string) string {
	s = CleanText(s)
	s = strings.ReplaceAll(s, "Etymology tree", "")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// DeduplicateStrings returns a new slice with duplicate strings removed,
// preserving the order of first occurrence. Returns nil for nil input.
func DeduplicateStrings(ss []string) []string {
	if ss == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(ss))
	result := make([]string, 0, len(ss))

	for _, s := range ss {
		if _, exists := seen[s]; exists {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}

	return result
}
