// Package aggregate merges raw senses into one Entry per normalized headword.
package aggregate

import (
	"strings"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// UnknownPOS groups senses whose record carried no part of speech.
const UnknownPOS = "unknown"

// Reduce folds s into e and returns the result. e and s are not modified.
//
// When e has no key yet, a new Entry is created for s's normalized
// headword and the headword's casing is taken from s (first seen wins).
// The merge rules are applied left to right:
//   - s's definition is appended to SensesByPOS[pos] unless already present;
//   - IPA, Etymology, Hyphenation and Audio are filled only while empty;
//   - form labels not yet present are appended.
func Reduce(e domain.Entry, s domain.RawSense) domain.Entry {
	if e.Key == "" {
		e = newEntry(domain.NormalizeHeadword(s.Headword), s.Headword)
	} else {
		e = e.Clone()
	}
	merge(&e, s)
	return e
}

// ReduceAll folds senses into a fresh Entry in order.
func ReduceAll(senses []domain.RawSense) domain.Entry {
	var e domain.Entry
	for _, s := range senses {
		if e.Key == "" {
			e = newEntry(domain.NormalizeHeadword(s.Headword), s.Headword)
		}
		merge(&e, s)
	}
	return e
}

func newEntry(key, headword string) domain.Entry {
	return domain.Entry{
		Key:         key,
		Headword:    strings.TrimSpace(headword),
		SensesByPOS: make(map[string][]string),
	}
}

// merge applies s to an entry the caller owns exclusively.
func merge(e *domain.Entry, s domain.RawSense) {
	if e.Headword == "" {
		e.Headword = strings.TrimSpace(s.Headword)
	}
	if def := s.Definition(); def != "" {
		if e.SensesByPOS == nil {
			e.SensesByPOS = make(map[string][]string)
		}
		pos := normalizePOS(s.POS)
		defs, ok := e.SensesByPOS[pos]
		if !ok {
			e.POSOrder = append(e.POSOrder, pos)
		}
		if !contains(defs, def) {
			e.SensesByPOS[pos] = append(defs, def)
		}
	}

	if e.IPA == "" {
		e.IPA = s.IPA
	}
	if e.Etymology == "" {
		e.Etymology = s.Etymology
	}
	if len(e.Hyphenation) == 0 && len(s.Hyphenation) > 0 {
		e.Hyphenation = append([]string(nil), s.Hyphenation...)
	}
	if e.Audio == "" && domain.ValidAudioRef(s.Audio) {
		e.Audio = s.Audio
	}

	for _, f := range s.Forms {
		if f.Label == "" || f.Value == "" {
			continue
		}
		if _, ok := e.FormValue(f.Label); !ok {
			e.Forms = append(e.Forms, f)
		}
	}
}

func normalizePOS(pos string) string {
	pos = strings.ToLower(strings.TrimSpace(pos))
	if pos == "" {
		return UnknownPOS
	}
	return pos
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
