// Package filter decides which raw senses are worth a flashcard.
// Every predicate is pure: the sense is never modified.
package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// DefaultMinLength is the default minimum gloss length in characters.
const DefaultMinLength = 10

// Reason explains why a sense was dropped.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTooShort    Reason = "too_short"
	ReasonNonContent  Reason = "non_content"
	ReasonExcludedTag Reason = "excluded_tag"
)

// DefaultExcludedTags are sense tags that mark glossless or stub senses.
var DefaultExcludedTags = []string{"no-gloss"}

// DefaultMarkers match glosses that carry no definition of their own:
// placeholders and request-for-definition stubs.
var DefaultMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\W*(placeholder|rfdef|no[ -]gloss|definition needed|\?+)\W*$`),
	regexp.MustCompile(`(?i)^used other than figuratively or idiomatically:\s*see\b`),
}

// crossRefRe matches a bare Wiktionary cross reference: capital "See",
// optionally "also", then exactly one target term.
var crossRefRe = regexp.MustCompile(`^See(\s+also)?\s+([^\s.,;:!?]+)\.?$`)

// seeComplements turn "See X" into a phrase of its own ("See through.",
// "See you.") instead of a pointer to the entry X.
var seeComplements = map[string]bool{
	"about": true, "after": true, "ahead": true, "around": true, "double": true,
	"her": true, "him": true, "it": true, "me": true, "off": true, "out": true,
	"over": true, "red": true, "stars": true, "them": true, "through": true,
	"to": true, "up": true, "us": true, "you": true,
}

// Filter holds the inclusion predicates applied to every raw sense.
// CrossReferences treats bare "See X" glosses as non-content.
type Filter struct {
	// MinLength is the minimum number of characters (runes) of the
	// space-joined, trimmed gloss text. A gloss of exactly MinLength
	// characters is kept.
	MinLength       int
	ExcludedTags    map[string]bool
	Markers         []*regexp.Regexp
	CrossReferences bool
}

// New creates a Filter with the default markers and cross-reference
// detection.
func New(minLength int, excludedTags []string) Filter {
	tags := make(map[string]bool, len(excludedTags))
	for _, t := range excludedTags {
		if t = strings.TrimSpace(t); t != "" {
			tags[t] = true
		}
	}
	return Filter{
		MinLength:       minLength,
		ExcludedTags:    tags,
		Markers:         DefaultMarkers,
		CrossReferences: true,
	}
}

// Default returns the filter used when nothing is configured.
func Default() Filter {
	return New(DefaultMinLength, DefaultExcludedTags)
}

// Keep reports whether s should be aggregated.
func (f Filter) Keep(s domain.RawSense) bool {
	return f.Reason(s) == ReasonNone
}

// Reason returns why s is dropped, or ReasonNone when it is kept.
func (f Filter) Reason(s domain.RawSense) Reason {
	for _, t := range s.Tags {
		if f.ExcludedTags[t] {
			return ReasonExcludedTag
		}
	}

	text := strings.TrimSpace(strings.Join(s.Glosses, " "))
	if utf8.RuneCountInString(text) < f.MinLength || text == "" {
		return ReasonTooShort
	}

	if f.allMarkers(s.Glosses) {
		return ReasonNonContent
	}
	return ReasonNone
}

// allMarkers reports whether every non-blank gloss is a non-content marker.
func (f Filter) allMarkers(glosses []string) bool {
	if len(f.Markers) == 0 && !f.CrossReferences {
		return false
	}
	matched := 0
	for _, g := range glosses {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if !f.isMarker(g) {
			return false
		}
		matched++
	}
	return matched > 0
}

func (f Filter) isMarker(g string) bool {
	for _, re := range f.Markers {
		if re.MatchString(g) {
			return true
		}
	}
	return f.CrossReferences && isCrossReference(g)
}

func isCrossReference(g string) bool {
	m := crossRefRe.FindStringSubmatch(g)
	if m == nil {
		return false
	}
	if m[1] != "" {
		return true
	}
	return !seeComplements[strings.ToLower(m[2])]
}
