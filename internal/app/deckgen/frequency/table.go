// Package frequency loads word-frequency lists and assigns ranks to entries.
// The Table is immutable once built and safe for concurrent lookups.
package frequency

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// Mode selects how the numeric column of a frequency list is read.
type Mode string

const (
	// ModePosition ranks words by their 1-based line number; the numeric
	// column is a count and is only validated. Lists such as the
	// Wikipedia word-frequency dump are sorted this way.
	ModePosition Mode = "position"
	// ModeRank reads the numeric column as the rank itself.
	ModeRank Mode = "rank"
	// ModeCount reads the numeric column as an occurrence count and
	// derives ranks by descending count.
	ModeCount Mode = "count"
)

// ParseMode validates a mode name. Empty means ModePosition.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModePosition, nil
	case ModePosition, ModeRank, ModeCount:
		return m, nil
	default:
		return "", fmt.Errorf("unknown frequency mode %q", s)
	}
}

// Options control table construction.
type Options struct {
	Mode Mode
	// MaxRank drops ranks above it (0 keeps all).
	MaxRank int
}

// Stats holds parse statistics for logging.
type Stats struct {
	Lines      int
	Skipped    int
	Collisions int
	Words      int
}

// Table maps case-folded words to their best rank.
type Table struct {
	ranks map[string]domain.Rank
}

// Empty returns a table with no words; every lookup is unranked.
func Empty() *Table {
	return &Table{ranks: map[string]domain.Rank{}}
}

// Load opens and parses a frequency list file.
func Load(path string, opts Options) (*Table, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open frequency list: %w", err)
	}
	defer f.Close()

	t, stats, err := Parse(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("parse frequency list %s: %w", path, err)
	}
	return t, stats, nil
}

// candidate is the best line seen so far for a folded word.
type candidate struct {
	rank  int
	count float64
	order int
}

// Parse reads whitespace-delimited "word number" lines. The number is the
// last field, so multi-word entries ("ice cream 1234") are accepted.
// Lines that cannot be used are counted in Stats.Skipped.
//
// When several casings fold to the same key, the lower rank (or, in
// ModeCount, the higher count) wins; exact ties keep the first line.
func Parse(r io.Reader, opts Options) (*Table, Stats, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModePosition
	}

	var stats Stats
	best := make(map[string]candidate)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		fields := strings.Fields(line)
		if len(fields) < 2 {
			stats.Skipped++
			continue
		}
		key := domain.FoldKey(strings.Join(fields[:len(fields)-1], " "))
		num := fields[len(fields)-1]

		c := candidate{order: lineNo}
		ok := true
		switch mode {
		case ModePosition:
			count, err := strconv.ParseFloat(num, 64)
			ok = err == nil && count >= 0 && !math.IsInf(count, 0)
			c.rank = lineNo
		case ModeRank:
			rank, err := strconv.Atoi(num)
			ok = err == nil && rank >= 1
			c.rank = rank
		case ModeCount:
			count, err := strconv.ParseFloat(num, 64)
			ok = err == nil && count >= 0 && !math.IsInf(count, 0)
			c.count = count
		default:
			return nil, stats, fmt.Errorf("unknown frequency mode %q", mode)
		}
		if !ok || key == "" {
			stats.Skipped++
			continue
		}

		prev, exists := best[key]
		if !exists {
			best[key] = c
			continue
		}
		stats.Collisions++
		if better(mode, c, prev) {
			best[key] = c
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanner error: %w", err)
	}

	if mode == ModeCount {
		assignCountRanks(best)
	}

	t := &Table{ranks: make(map[string]domain.Rank, len(best))}
	for key, c := range best {
		if opts.MaxRank > 0 && c.rank > opts.MaxRank {
			continue
		}
		t.ranks[key] = domain.Rank(c.rank)
	}
	stats.Words = len(t.ranks)

	return t, stats, nil
}

// better reports whether c beats prev. Ties keep prev (first seen).
func better(mode Mode, c, prev candidate) bool {
	if mode == ModeCount {
		return c.count > prev.count
	}
	return c.rank < prev.rank
}

// assignCountRanks turns counts into 1-based ranks: descending count,
// ties broken by first appearance in the list.
func assignCountRanks(best map[string]candidate) {
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := best[keys[i]], best[keys[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.order < b.order
	})
	for i, k := range keys {
		c := best[k]
		c.rank = i + 1
		best[k] = c
	}
}

// Lookup returns the rank of word after case folding.
func (t *Table) Lookup(word string) (domain.Rank, bool) {
	r, ok := t.ranks[domain.FoldKey(word)]
	return r, ok
}

// Len returns the number of distinct folded words.
func (t *Table) Len() int { return len(t.ranks) }
