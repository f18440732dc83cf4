// Package tabular writes aggregated entries as a CSV table and reads them back.
//
// Columns, in order: Headword, Definitions, IPA, Etymology, Forms,
// Hyphenation, Audio, Rank. Fields are quoted per RFC 4180, so commas,
// quotes and newlines in text are safe.
//
// Multi-value columns use two reserved control characters that never
// occur in cleaned text:
//
//	RS (U+001E) separates segments
//	US (U+001F) separates the head of a segment from its values
//
// Definitions: "noun<US>gloss<US>gloss<RS>verb<US>gloss".
// Forms: "plural<US>mice<RS>past<US>ran".
// Hyphenation: "dic<US>tion<US>ar<US>y".
// Rank is a decimal integer, or empty for unranked headwords.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

const (
	RecordSep = "\x1e"
	UnitSep   = "\x1f"
)

// ErrMalformedField is returned when a multi-value cell cannot be decoded.
var ErrMalformedField = errors.New("malformed field")

// EncodeDefinitions serializes per-POS definitions in POSOrder.
// POS groups without definitions are omitted.
func EncodeDefinitions(posOrder []string, sensesByPOS map[string][]string) string {
	segments := make([]string, 0, len(posOrder))
	for _, pos := range posOrder {
		defs := sensesByPOS[pos]
		if len(defs) == 0 {
			continue
		}
		segments = append(segments, pos+UnitSep+strings.Join(defs, UnitSep))
	}
	return strings.Join(segments, RecordSep)
}

// DecodeDefinitions reverses EncodeDefinitions.
func DecodeDefinitions(s string) ([]string, map[string][]string, error) {
	byPOS := make(map[string][]string)
	if s == "" {
		return nil, byPOS, nil
	}

	var order []string
	for i, seg := range strings.Split(s, RecordSep) {
		parts := strings.Split(seg, UnitSep)
		if len(parts) < 2 {
			return nil, nil, fmt.Errorf("definitions segment %d: %w", i, ErrMalformedField)
		}
		pos := parts[0]
		if _, dup := byPOS[pos]; dup {
			return nil, nil, fmt.Errorf("definitions segment %d: duplicate pos %q: %w", i, pos, ErrMalformedField)
		}
		order = append(order, pos)
		byPOS[pos] = parts[1:]
	}
	return order, byPOS, nil
}

// EncodeForms serializes forms in their stored order.
func EncodeForms(forms []domain.Form) string {
	segments := make([]string, len(forms))
	for i, f := range forms {
		segments[i] = f.Label + UnitSep + f.Value
	}
	return strings.Join(segments, RecordSep)
}

// DecodeForms reverses EncodeForms.
func DecodeForms(s string) ([]domain.Form, error) {
	if s == "" {
		return nil, nil
	}
	segs := strings.Split(s, RecordSep)
	forms := make([]domain.Form, 0, len(segs))
	for i, seg := range segs {
		label, value, ok := strings.Cut(seg, UnitSep)
		if !ok || strings.Contains(value, UnitSep) {
			return nil, fmt.Errorf("forms segment %d: %w", i, ErrMalformedField)
		}
		forms = append(forms, domain.Form{Label: label, Value: value})
	}
	return forms, nil
}

func encodeHyphenation(parts []string) string {
	return strings.Join(parts, UnitSep)
}

func decodeHyphenation(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, UnitSep)
}

func decodeRank(s string) (domain.Rank, error) {
	if s == "" {
		return domain.Unranked, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return domain.Unranked, fmt.Errorf("rank %q: %w", s, ErrMalformedField)
	}
	return domain.Rank(n), nil
}
