package aggregate

import (
	"runtime"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// shardQueue is the per-shard channel capacity in batches.
const shardQueue = 64

// Stats summarizes a finalized aggregation.
type Stats struct {
	// Keys is the number of distinct normalized headwords seen.
	Keys int
	// Entries is the number of entries returned by Finalize.
	Entries int
	// Dropped counts entries discarded because no sense survived.
	Dropped int
	// Unkeyed counts senses whose headword normalized to nothing.
	Unkeyed int
}

type keyedSense struct {
	key   string
	sense domain.RawSense
	// reserve registers the key without merging anything from sense.
	reserve bool
}

// shard owns a partition of the headword space. Only its goroutine
// touches entries and first.
type shard struct {
	in      chan []keyedSense
	entries map[string]*domain.Entry
	first   map[string]int64
}

func (s *shard) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for batch := range s.in {
		for _, ks := range batch {
			e, ok := s.entries[ks.key]
			if !ok {
				headword := ks.sense.Headword
				if ks.reserve {
					headword = ""
				}
				ne := newEntry(ks.key, headword)
				e = &ne
				s.entries[ks.key] = e
				s.first[ks.key] = ks.sense.Seq
			}
			if !ks.reserve {
				merge(e, ks.sense)
			}
		}
	}
}

// Aggregator partitions senses by normalized headword across shards,
// each owned by one goroutine that folds its senses in arrival order.
//
// AddBatch and Reserve must be called from a single goroutine in source
// order; Finalize must be called exactly once to release the shards.
type Aggregator struct {
	shards  []*shard
	wg      sync.WaitGroup
	unkeyed int
	done    bool
	stats   Stats
}

// New starts an Aggregator with n shards (n <= 0 means GOMAXPROCS).
func New(n int) *Aggregator {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	a := &Aggregator{shards: make([]*shard, n)}
	for i := range a.shards {
		s := &shard{
			in:      make(chan []keyedSense, shardQueue),
			entries: make(map[string]*domain.Entry),
			first:   make(map[string]int64),
		}
		a.shards[i] = s
		a.wg.Add(1)
		go s.run(&a.wg)
	}
	return a
}

// AddBatch routes senses to their shards, preserving their relative order
// within each shard.
func (a *Aggregator) AddBatch(senses []domain.RawSense) {
	a.route(senses, false)
}

// Reserve registers the headwords of filtered-out senses. A reserved
// headword that never receives a sense through AddBatch is counted in
// Stats.Dropped; nothing else of the reserved senses is used.
func (a *Aggregator) Reserve(senses []domain.RawSense) {
	a.route(senses, true)
}

func (a *Aggregator) route(senses []domain.RawSense, reserve bool) {
	if a.done {
		panic("aggregate: AddBatch after Finalize")
	}

	parts := make([][]keyedSense, len(a.shards))
	for _, s := range senses {
		key := domain.NormalizeHeadword(s.Headword)
		if key == "" {
			if !reserve {
				a.unkeyed++
			}
			continue
		}
		i := a.shardOf(key)
		parts[i] = append(parts[i], keyedSense{key: key, sense: s, reserve: reserve})
	}
	for i, p := range parts {
		if len(p) > 0 {
			a.shards[i].in <- p
		}
	}
}

func (a *Aggregator) shardOf(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(a.shards)))
}

// Finalize waits for every shard to drain and returns the non-empty
// entries ordered by the source position of each headword's first sense.
// The returned entries are owned by the caller.
func (a *Aggregator) Finalize() []domain.Entry {
	if a.done {
		return nil
	}
	a.done = true
	for _, s := range a.shards {
		close(s.in)
	}
	a.wg.Wait()

	type firstSeen struct {
		seq   int64
		key   string
		entry *domain.Entry
	}
	var all []firstSeen
	for _, s := range a.shards {
		for key, e := range s.entries {
			all = append(all, firstSeen{seq: s.first[key], key: key, entry: e})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].seq != all[j].seq {
			return all[i].seq < all[j].seq
		}
		return all[i].key < all[j].key
	})

	out := make([]domain.Entry, 0, len(all))
	for _, fs := range all {
		if fs.entry.IsEmpty() {
			a.stats.Dropped++
			continue
		}
		out = append(out, *fs.entry)
	}
	a.stats.Keys = len(all)
	a.stats.Entries = len(out)
	a.stats.Unkeyed = a.unkeyed

	for _, s := range a.shards {
		s.entries, s.first = nil, nil
	}
	return out
}

// Stats returns the aggregation summary. It is complete after Finalize.
func (a *Aggregator) Stats() Stats {
	return a.stats
}
