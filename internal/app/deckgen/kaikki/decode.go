package kaikki

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// ErrForeign is returned for records whose language differs from the
// decoder's configured language. It is a skip, not a failure.
var ErrForeign = errors.New("foreign language record")

// skipFormTags marks Kaikki form rows that describe inflection tables
// rather than actual word forms.
var skipFormTags = map[string]bool{
	"table-tags":          true,
	"inflection-template": true,
	"class":               true,
}

// Decoder turns JSONL lines into raw senses.
type Decoder struct {
	// Language, when non-empty, keeps only records whose "lang" is
	// missing or equal to it (e.g. "English").
	Language string
}

// Decode parses one line. lineIdx is the 0-based physical line index and
// becomes the high part of every returned sense's Seq.
//
// A Kaikki word line expands into one RawSense per entry in "senses";
// line-level metadata is copied onto each. A flat line with top-level
// "glosses" yields a single RawSense. Missing optional fields map to zero
// values. Errors wrap domain.ErrMalformedRecord or domain.ErrMissingHeadword,
// or are ErrForeign.
func (d Decoder) Decode(line []byte, lineIdx int) ([]domain.RawSense, error) {
	var entry kaikkiEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, errors.Join(domain.ErrMalformedRecord, err)
	}

	headword := CleanText(entry.Word)
	if headword == "" {
		return nil, domain.ErrMissingHeadword
	}

	if d.Language != "" && entry.Lang != "" && entry.Lang != d.Language {
		return nil, ErrForeign
	}

	base := domain.RawSense{
		Headword:    headword,
		POS:         strings.TrimSpace(CleanText(entry.POS)),
		IPA:         buildIPA(&entry),
		Etymology:   CleanEtymology(entry.EtymologyText),
		Forms:       buildForms(entry.Forms),
		Hyphenation: buildHyphenation(&entry),
		Audio:       buildAudio(&entry),
	}

	if len(entry.Senses) == 0 {
		if entry.Glosses == nil {
			return nil, nil
		}
		s := base
		s.Seq = domain.MakeSeq(lineIdx, 0)
		s.Glosses = cleanGlosses(entry.Glosses)
		s.Tags = DeduplicateStrings(cleanList(entry.Tags))
		return []domain.RawSense{s}, nil
	}

	senses := make([]domain.RawSense, 0, len(entry.Senses))
	for i := range entry.Senses {
		ks := &entry.Senses[i]

		s := base
		s.Seq = domain.MakeSeq(lineIdx, i)

		// raw_glosses carry qualifiers like "(transitive)"; prefer them.
		if len(ks.RawGlosses) > 0 {
			s.Glosses = cleanGlosses(ks.RawGlosses)
		} else {
			s.Glosses = cleanGlosses(ks.Glosses)
		}
		s.Label = buildLabel(ks)
		s.Tags = buildTags(ks)

		senses = append(senses, s)
	}
	return senses, nil
}

func cleanGlosses(glosses []string) []string {
	out := make([]string, 0, len(glosses))
	for _, g := range glosses {
		if c := CleanText(g); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func cleanList(ss []string) []string {
	var out []string
	for _, s := range ss {
		if c := CleanText(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// buildTags merges sense tags and category names. Categories appear
// either as plain strings or as {"name": ...} objects depending on the
// dump version.
func buildTags(ks *kaikkiSense) []string {
	tags := cleanList(ks.Tags)
	for _, raw := range ks.Categories {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			var cat kaikkiCategory
			if err := json.Unmarshal(raw, &cat); err != nil {
				continue
			}
			name = cat.Name
		}
		if c := CleanText(name); c != "" {
			tags = append(tags, c)
		}
	}
	return DeduplicateStrings(tags)
}

// Category labels are short plain-string categories that are not
// per-language bookkeeping ("English nouns").
const (
	maxCategoryLabels   = 3
	maxCategoryLabelLen = 20
)

// buildLabel picks the usage context shown before a definition: the
// sense qualifier, else its topics, else up to three short categories.
func buildLabel(ks *kaikkiSense) string {
	if q := CleanText(ks.Qualifier); q != "" {
		return q
	}
	if topics := DeduplicateStrings(cleanList(ks.Topics)); len(topics) > 0 {
		return strings.Join(topics, ", ")
	}

	var cats []string
	for _, raw := range ks.Categories {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			continue
		}
		name = CleanText(name)
		if name == "" || strings.HasPrefix(name, "English ") ||
			utf8.RuneCountInString(name) >= maxCategoryLabelLen {
			continue
		}
		cats = append(cats, name)
		if len(cats) == maxCategoryLabels {
			break
		}
	}
	return strings.Join(cats, ", ")
}

// buildIPA renders every distinct IPA transcription with its tags,
// e.g. "/kæt/ (US); /kat/ (UK)".
func buildIPA(entry *kaikkiEntry) string {
	var ipas []string
	if ipa := CleanText(entry.IPA); ipa != "" {
		ipas = append(ipas, ipa)
	}
	for _, snd := range entry.Sounds {
		ipa := CleanText(snd.IPA)
		if ipa == "" {
			continue
		}
		if tags := cleanList(snd.Tags); len(tags) > 0 {
			ipa += " (" + strings.Join(tags, ", ") + ")"
		}
		ipas = append(ipas, ipa)
	}
	return strings.Join(DeduplicateStrings(ipas), "; ")
}

// buildAudio returns the first valid audio reference, preferring MP3 URLs.
func buildAudio(entry *kaikkiEntry) string {
	if a := strings.TrimSpace(entry.Audio); domain.ValidAudioRef(a) {
		return a
	}
	for _, snd := range entry.Sounds {
		for _, ref := range [...]string{snd.MP3URL, snd.OGGURL, snd.Audio} {
			ref = strings.TrimSpace(ref)
			if domain.ValidAudioRef(ref) {
				return ref
			}
		}
	}
	return ""
}

// buildForms maps Kaikki forms to (label, value) pairs. The label is the
// space-joined tag list; the first form per label wins.
func buildForms(forms []kaikkiForm) []domain.Form {
	var out []domain.Form
	seen := make(map[string]bool, len(forms))

outer:
	for _, f := range forms {
		value := CleanText(f.Form)
		tags := cleanList(f.Tags)
		if value == "" || len(tags) == 0 {
			continue
		}
		for _, t := range tags {
			if skipFormTags[t] {
				continue outer
			}
		}

		label := strings.Join(tags, " ")
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, domain.Form{Label: label, Value: value})
	}
	return out
}

func buildHyphenation(entry *kaikkiEntry) []string {
	if parts := cleanList(entry.Hyphenation); len(parts) > 0 {
		return parts
	}
	for _, h := range entry.Hyphenations {
		if parts := cleanList(h.Parts); len(parts) > 0 {
			return parts
		}
	}
	return nil
}
