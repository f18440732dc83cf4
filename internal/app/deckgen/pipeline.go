// Package deckgen turns a Kaikki/Wiktionary JSONL dump into a ranked,
// deduplicated CSV deck table.
//
// Data flow: line batches are decoded and filtered by parallel workers,
// put back into source order, folded into per-headword entries by the
// sharded aggregator, then ranked, sorted and written in one file.
package deckgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/aggregate"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/filter"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/frequency"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/kaikki"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/tabular"
	"github.com/heartmarshall/myenglish-deckgen/internal/config"
	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
	"github.com/heartmarshall/myenglish-deckgen/pkg/ctxutil"
)

// Exporter receives the finished deck. Implemented by deckentry.Repo.
type Exporter interface {
	ReplaceAll(ctx context.Context, runID uuid.UUID, entries []domain.Entry, batchSize int) (int, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExporter sets the catalog exporter run after the CSV is written.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithProgress registers fn to be called every ProgressEvery input lines
// and once when reading finishes. fn runs on the pipeline's goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline runs one deck build.
type Pipeline struct {
	log      *slog.Logger
	cfg      config.Config
	exporter Exporter
	progress func(Progress)
	// observePending, when set, sees the sequencer backlog after every result.
	observePending func(int)
}

// NewPipeline creates a new Pipeline.
func NewPipeline(log *slog.Logger, cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{log: log, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline. Configuration problems are reported before
// any input is read and no output file is created for them.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.New(), OutputPath: p.cfg.Output.CSVPath}
	ctx = ctxutil.WithRunID(ctx, res.RunID)

	// Step 1: Validate configuration.
	if err := p.cfg.Validate(); err != nil {
		return res, fmt.Errorf("config: %w", err)
	}

	// Step 2: Load the frequency table.
	table, err := p.loadFrequency(ctx, &res.Stats)
	if err != nil {
		return res, err
	}

	// Step 3: Read, filter and aggregate.
	p.log.InfoContext(ctx, "reading dump",
		slog.String("input", p.cfg.Input.WiktionaryPath),
		slog.Int("limit", p.cfg.Pipeline.Limit),
		slog.Int("workers", p.workers()),
	)
	entries, err := p.ingest(ctx, &res.Stats)
	if err != nil {
		return res, err
	}

	// Step 4: Rank and sort.
	ranked, err := frequency.AssignAll(ctx, entries, table, p.workers())
	if err != nil {
		return res, fmt.Errorf("assign ranks: %w", err)
	}
	res.Stats.Ranked = ranked
	res.Stats.Unranked = len(entries) - ranked
	tabular.Sort(entries)

	// Step 5: Write the table.
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := tabular.WriteFile(p.cfg.Output.CSVPath, entries); err != nil {
		return res, fmt.Errorf("write table: %w", err)
	}

	// Step 6: Optional catalog export.
	if p.exporter != nil {
		n, err := p.exporter.ReplaceAll(ctx, res.RunID, entries, p.cfg.Database.BatchSize)
		if err != nil {
			return res, fmt.Errorf("export catalog: %w", err)
		}
		res.Stats.Exported = n
	}

	// Step 7: Summary log.
	res.Duration = time.Since(start)
	p.log.InfoContext(ctx, "deck built", res.logAttrs()...)
	return res, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Pipeline.Workers > 0 {
		return p.cfg.Pipeline.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (p *Pipeline) loadFrequency(ctx context.Context, stats *Stats) (*frequency.Table, error) {
	if p.cfg.Input.FrequencyPath == "" {
		p.log.WarnContext(ctx, "frequency list not configured, all entries will be unranked")
		return frequency.Empty(), nil
	}

	mode, err := frequency.ParseMode(p.cfg.Input.FrequencyMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	table, fs, err := frequency.Load(p.cfg.Input.FrequencyPath, frequency.Options{
		Mode:    mode,
		MaxRank: p.cfg.Pipeline.MaxRank,
	})
	if err != nil {
		return nil, err
	}

	stats.FreqLines = fs.Lines
	stats.FreqSkipped = fs.Skipped
	stats.FreqCollisions = fs.Collisions
	stats.FreqWords = fs.Words
	p.log.InfoContext(ctx, "frequency list loaded",
		slog.String("path", p.cfg.Input.FrequencyPath),
		slog.String("mode", string(mode)),
		slog.Int("words", fs.Words),
		slog.Int("skipped", fs.Skipped),
		slog.Int("collisions", fs.Collisions),
	)
	return table, nil
}

// batchResult is one decoded and filtered batch.
type batchResult struct {
	index    int
	senses   []domain.RawSense
	filtered []domain.RawSense
	read     kaikki.Stats
	drops    DropCounts
	offset   int64
}

// ingest reads the whole dump and returns the finalized entries in
// first-seen order. Nothing downstream starts before it returns.
func (p *Pipeline) ingest(ctx context.Context, stats *Stats) ([]domain.Entry, error) {
	rd, err := kaikki.Open(p.cfg.Input.WiktionaryPath, kaikki.ReaderOptions{
		BatchLines:  p.cfg.Pipeline.BatchLines,
		Limit:       p.cfg.Pipeline.Limit,
		MaxLineSize: p.cfg.Pipeline.MaxLineBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer rd.Close()

	dec := kaikki.Decoder{Language: p.cfg.Input.Language}
	flt := filter.New(p.cfg.Filter.MinDefinitionLength, p.cfg.Filter.ExcludedTags)
	agg := aggregate.New(p.cfg.Pipeline.Shards)

	if err := p.scan(ctx, rd, dec, flt, agg, stats); err != nil {
		agg.Finalize()
		return nil, err
	}

	entries := agg.Finalize()
	as := agg.Stats()
	stats.Keys = as.Keys
	stats.Entries = as.Entries
	stats.EntriesDropped = as.Dropped
	return entries, nil
}

// scan feeds the batches of rd through the decode workers into agg in
// source order. At most 2*workers batches are in flight between the
// reader and the sequencer.
func (p *Pipeline) scan(
	ctx context.Context,
	rd *kaikki.Reader,
	dec kaikki.Decoder,
	flt filter.Filter,
	agg *aggregate.Aggregator,
	stats *Stats,
) error {
	workers := p.workers()
	total := rd.Size()

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan kaikki.Batch, workers)
	results := make(chan batchResult, workers)
	slots := make(chan struct{}, 2*workers)

	// Producer: sequential read. A slot is taken per batch and given
	// back by the sequencer once the batch is folded in.
	g.Go(func() error {
		defer close(batches)
		for b := range rd.Batches() {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case batches <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return rd.Err()
	})

	// Workers: decode and filter.
	g.Go(func() error {
		defer close(results)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for b := range batches {
					res := decodeAndFilter(dec, flt, b)
					select {
					case results <- res:
					case <-gctx.Done():
						return
					}
				}
			}()
		}
		wg.Wait()
		return nil
	})

	// Sequencer: restore batch order and feed the shards.
	g.Go(func() error {
		pending := make(map[int]batchResult)
		next := 0
		reported := 0
		var bytesRead int64

		for r := range results {
			pending[r.index] = r
			if p.observePending != nil {
				p.observePending(len(pending))
			}
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				<-slots

				agg.AddBatch(cur.senses)
				agg.Reserve(cur.filtered)
				stats.Read.Add(cur.read)
				stats.SensesKept += len(cur.senses)
				stats.SensesDropped.Merge(cur.drops)
				bytesRead = cur.offset

				every := p.cfg.Pipeline.ProgressEvery
				if every > 0 && stats.Read.Lines-reported >= every {
					reported = stats.Read.Lines - stats.Read.Lines%every
					p.report(stats, bytesRead, total)
				}
			}
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if len(pending) > 0 {
			return errors.New("sequencer: batches missing from worker output")
		}
		p.report(stats, bytesRead, total)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	return ctx.Err()
}

func decodeAndFilter(dec kaikki.Decoder, flt filter.Filter, b kaikki.Batch) batchResult {
	senses, st := dec.DecodeBatch(b)
	res := batchResult{index: b.Index, read: st, offset: b.Offset}

	kept := senses[:0]
	for _, s := range senses {
		if reason := flt.Reason(s); reason != filter.ReasonNone {
			res.drops.Add(reason)
			res.filtered = append(res.filtered, domain.RawSense{Seq: s.Seq, Headword: s.Headword})
			continue
		}
		kept = append(kept, s)
	}
	res.senses = kept
	return res
}

func (p *Pipeline) report(stats *Stats, bytesRead, total int64) {
	if p.progress == nil {
		return
	}
	p.progress(Progress{
		Lines:      stats.Read.Lines,
		Senses:     stats.SensesKept,
		Bytes:      bytesRead,
		TotalBytes: total,
	})
}
