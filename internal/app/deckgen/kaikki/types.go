// Package kaikki decodes Kaikki/Wiktionary JSONL dumps into raw senses.
// Decoding is pure: bytes in, domain.RawSense values out.
package kaikki

import "encoding/json"

// Stats holds reader statistics. Every skipped line is counted, never raised.
type Stats struct {
	Lines           int
	Malformed       int
	MissingHeadword int
	Foreign         int
	Senses          int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Malformed += o.Malformed
	s.MissingHeadword += o.MissingHeadword
	s.Foreign += o.Foreign
	s.Senses += o.Senses
}

// Skipped returns the number of lines rejected as unusable.
func (s Stats) Skipped() int {
	return s.Malformed + s.MissingHeadword
}

// kaikkiEntry mirrors one Kaikki JSONL line (only fields we need).
// The top-level Glosses/IPA/Audio fields carry the flat
// one-sense-per-line shape some exporters produce.
type kaikkiEntry struct {
	Word          string              `json:"word"`
	POS           string              `json:"pos"`
	Lang          string              `json:"lang"`
	Senses        []kaikkiSense       `json:"senses"`
	Sounds        []kaikkiSound       `json:"sounds"`
	EtymologyText string              `json:"etymology_text"`
	Forms         []kaikkiForm        `json:"forms"`
	Hyphenation   []string            `json:"hyphenation"`
	Hyphenations  []kaikkiHyphenation `json:"hyphenations"`

	Glosses []string `json:"glosses"`
	Tags    []string `json:"tags"`
	IPA     string   `json:"ipa"`
	Audio   string   `json:"audio"`
}

// kaikkiSense mirrors one sense from a Kaikki entry.
type kaikkiSense struct {
	Glosses    []string          `json:"glosses"`
	RawGlosses []string          `json:"raw_glosses"`
	Tags       []string          `json:"tags"`
	Categories []json.RawMessage `json:"categories"`
	Qualifier  string            `json:"qualifier"`
	Topics     []string          `json:"topics"`
}

// kaikkiSound mirrors a sound entry from Kaikki.
type kaikkiSound struct {
	IPA    string   `json:"ipa"`
	Tags   []string `json:"tags"`
	MP3URL string   `json:"mp3_url"`
	OGGURL string   `json:"ogg_url"`
	Audio  string   `json:"audio"`
}

// kaikkiForm mirrors an inflected form.
type kaikkiForm struct {
	Form string   `json:"form"`
	Tags []string `json:"tags"`
}

// kaikkiHyphenation mirrors the newer hyphenation shape.
type kaikkiHyphenation struct {
	Parts []string `json:"parts"`
}

// kaikkiCategory is the object form of a sense category.
type kaikkiCategory struct {
	Name string `json:"name"`
}
