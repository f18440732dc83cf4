package tabular

import (
	"sort"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

type sortItem struct {
	fold  string
	entry domain.Entry
}

// Sort orders entries for emission: rank ascending with unranked last,
// then case-folded headword, then exact headword, then key. The result
// does not depend on the input order.
func Sort(entries []domain.Entry) {
	items := make([]sortItem, len(entries))
	for i := range entries {
		items[i] = sortItem{fold: domain.FoldKey(entries[i].Headword), entry: entries[i]}
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.entry.Rank != b.entry.Rank {
			return a.entry.Rank.Less(b.entry.Rank)
		}
		if a.fold != b.fold {
			return a.fold < b.fold
		}
		if a.entry.Headword != b.entry.Headword {
			return a.entry.Headword < b.entry.Headword
		}
		return a.entry.Key < b.entry.Key
	})

	for i := range items {
		entries[i] = items[i].entry
	}
}
