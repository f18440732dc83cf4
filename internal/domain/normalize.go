package domain

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeadword produces the aggregation key for a headword:
// NFC, trimmed, internal whitespace collapsed to single spaces, lowercased.
// Diacritics are preserved ("Café" -> "café").
func NormalizeHeadword(text string) string {
	text = collapseSpaces(norm.NFC.String(text))
	if text == "" {
		return ""
	}
	// cases.Caser is stateful, so a new one per call.
	return cases.Lower(language.Und).String(text)
}

// FoldKey produces the lookup key shared by the frequency table and the
// rank assigner. It applies full Unicode case folding on top of
// NFC, so "STRASSE" and "straße" fold to the same key.
func FoldKey(text string) string {
	text = collapseSpaces(norm.NFC.String(text))
	if text == "" {
		return ""
	}
	return norm.NFC.String(cases.Fold().String(text))
}

// collapseSpaces trims s and replaces every run of Unicode whitespace
// with a single ASCII space.
func collapseSpaces(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".wav":  true,
	".flac": true,
}

// ValidAudioRef reports whether ref is usable as an audio reference:
// an absolute http(s) URL, or a bare file name with a known audio extension.
func ValidAudioRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}

	if strings.ContainsAny(ref, "/\\") {
		return false
	}
	return audioExtensions[strings.ToLower(path.Ext(ref))]
}
