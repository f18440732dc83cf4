package domain

import (
	"strconv"
	"strings"
)

// Form is a single inflected or alternative form of a headword,
// e.g. {Label: "plural", Value: "mice"}.
type Form struct {
	Label string
	Value string
}

// RawSense is one sense as read from the dictionary dump.
// It is never modified after decoding.
type RawSense struct {
	// Seq is the sense's position in the source: line index in the high
	// bits, sense index within the line in the low bits. See MakeSeq.
	Seq         int64
	Headword    string
	POS         string
	Glosses     []string
	// Label is the usage context shown before the definition,
	// e.g. "medicine" or "informal, dated".
	Label       string
	Tags        []string
	IPA         string
	Etymology   string
	Forms       []Form
	Hyphenation []string
	Audio       string
}

// senseBits is the number of low Seq bits reserved for the sense index.
const senseBits = 20

// MakeSeq packs a 0-based line index and sense index into a Seq value
// that orders senses exactly as they appear in the source file.
func MakeSeq(line, sense int) int64 {
	return int64(line)<<senseBits | int64(sense&(1<<senseBits-1))
}

// Line returns the 0-based source line index encoded in seq.
func Line(seq int64) int {
	return int(seq >> senseBits)
}

// Definition renders the sense's glosses as a single definition string,
// e.g. "(medicine) Inflammation of the skin". The label is omitted when
// the glosses already open with a parenthesized qualifier.
func (s RawSense) Definition() string {
	text := strings.Join(s.Glosses, "; ")
	if text == "" || s.Label == "" || strings.HasPrefix(text, "(") {
		return text
	}
	return "(" + s.Label + ") " + text
}

// Rank is a position in a frequency list. The zero value is Unranked.
type Rank int

// Unranked marks a headword absent from the frequency list.
const Unranked Rank = 0

// IsRanked reports whether r is a real rank (>= 1).
func (r Rank) IsRanked() bool { return r >= 1 }

// String returns the decimal rank, or "" when unranked.
func (r Rank) String() string {
	if !r.IsRanked() {
		return ""
	}
	return strconv.Itoa(int(r))
}

// Less orders ranks ascending with unranked last.
func (r Rank) Less(o Rank) bool {
	switch {
	case r.IsRanked() && o.IsRanked():
		return r < o
	default:
		return r.IsRanked() && !o.IsRanked()
	}
}

// Entry is the aggregated record for one normalized headword.
type Entry struct {
	// Key is the normalized headword (see NormalizeHeadword).
	Key      string
	Headword string

	// POSOrder lists parts of speech in first-seen order; SensesByPOS
	// holds the retained definitions per POS in source order.
	POSOrder    []string
	SensesByPOS map[string][]string

	IPA         string
	Etymology   string
	Forms       []Form
	Hyphenation []string
	Audio       string

	Rank Rank
}

// SenseCount returns the total number of retained definitions.
func (e *Entry) SenseCount() int {
	n := 0
	for _, defs := range e.SensesByPOS {
		n += len(defs)
	}
	return n
}

// IsEmpty reports whether the entry has no retained definitions.
// Empty entries are never emitted.
func (e *Entry) IsEmpty() bool {
	return e.SenseCount() == 0
}

// FormValue returns the value stored for label, if any.
func (e *Entry) FormValue(label string) (string, bool) {
	for _, f := range e.Forms {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	c := e
	c.POSOrder = append([]string(nil), e.POSOrder...)
	if e.SensesByPOS != nil {
		c.SensesByPOS = make(map[string][]string, len(e.SensesByPOS))
		for pos, defs := range e.SensesByPOS {
			c.SensesByPOS[pos] = append([]string(nil), defs...)
		}
	}
	c.Forms = append([]Form(nil), e.Forms...)
	c.Hyphenation = append([]string(nil), e.Hyphenation...)
	return c
}
