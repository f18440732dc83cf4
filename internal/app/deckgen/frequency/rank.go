package frequency

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// rankChunk is the number of entries ranked per goroutine task.
const rankChunk = 4096

// Assign returns e with its rank looked up in t. Entries absent from
// the table, or when t is nil, are Unranked.
func Assign(e domain.Entry, t *Table) domain.Entry {
	e.Rank = domain.Unranked
	if t == nil {
		return e
	}
	if r, ok := t.Lookup(e.Headword); ok {
		e.Rank = r
	}
	return e
}

// AssignAll ranks entries in place using up to workers goroutines.
// Each task owns a disjoint index range, so no locking is needed.
// It returns the number of ranked entries.
func AssignAll(ctx context.Context, entries []domain.Entry, t *Table, workers int) (int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(entries); start += rankChunk {
		end := min(start+rankChunk, len(entries))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				entries[i] = Assign(entries[i], t)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	ranked := 0
	for i := range entries {
		if entries[i].Rank.IsRanked() {
			ranked++
		}
	}
	return ranked, nil
}
