package deckgen

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/filter"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/kaikki"
)

// DropCounts counts filtered senses by reason.
type DropCounts struct {
	TooShort    int
	NonContent  int
	ExcludedTag int
}

// Add counts one drop.
func (d *DropCounts) Add(r filter.Reason) {
	switch r {
	case filter.ReasonTooShort:
		d.TooShort++
	case filter.ReasonNonContent:
		d.NonContent++
	case filter.ReasonExcludedTag:
		d.ExcludedTag++
	}
}

// Merge accumulates o into d.
func (d *DropCounts) Merge(o DropCounts) {
	d.TooShort += o.TooShort
	d.NonContent += o.NonContent
	d.ExcludedTag += o.ExcludedTag
}

// Total returns the number of dropped senses.
func (d DropCounts) Total() int {
	return d.TooShort + d.NonContent + d.ExcludedTag
}

// Stats holds the counters of one run.
type Stats struct {
	Read kaikki.Stats

	SensesKept    int
	SensesDropped DropCounts

	// Keys counts distinct normalized headwords; EntriesDropped those
	// that lost every sense to the filter.
	Keys           int
	Entries        int
	EntriesDropped int

	Ranked   int
	Unranked int

	FreqLines      int
	FreqSkipped    int
	FreqCollisions int
	FreqWords      int

	Exported int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      uuid.UUID
	OutputPath string
	Stats      Stats
	Duration   time.Duration
}

// Progress is reported while input is being read.
type Progress struct {
	Lines      int
	Senses     int
	Bytes      int64
	TotalBytes int64
}

func (r Result) logAttrs() []any {
	s := r.Stats
	return []any{
		slog.String("output", r.OutputPath),
		slog.Int("lines", s.Read.Lines),
		slog.Int("malformed", s.Read.Malformed),
		slog.Int("missing_headword", s.Read.MissingHeadword),
		slog.Int("foreign", s.Read.Foreign),
		slog.Int("senses", s.Read.Senses),
		slog.Int("senses_kept", s.SensesKept),
		slog.Group("senses_dropped",
			slog.Int("too_short", s.SensesDropped.TooShort),
			slog.Int("non_content", s.SensesDropped.NonContent),
			slog.Int("excluded_tag", s.SensesDropped.ExcludedTag),
		),
		slog.Int("entries", s.Entries),
		slog.Int("entries_dropped", s.EntriesDropped),
		slog.Int("ranked", s.Ranked),
		slog.Int("unranked", s.Unranked),
		slog.Int("freq_skipped", s.FreqSkipped),
		slog.Int("exported", s.Exported),
		slog.Duration("duration", r.Duration),
	}
}
