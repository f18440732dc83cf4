package deckgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen/tabular"
	"github.com/heartmarshall/myenglish-deckgen/internal/config"
	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
	"github.com/heartmarshall/myenglish-deckgen/pkg/ctxutil"
)

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Input.WiktionaryPath = testdataPath(t, "kaikki.jsonl")
	cfg.Input.FrequencyPath = testdataPath(t, "frequency.txt")
	cfg.Output.CSVPath = filepath.Join(t.TempDir(), "deck.csv")
	cfg.Pipeline.BatchLines = 2
	cfg.Pipeline.Workers = 3
	cfg.Pipeline.Shards = 4
	return *cfg
}

func readDeck(t *testing.T, path string) []domain.Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	entries, err := tabular.ReadAll(f)
	require.NoError(t, err)
	return entries
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	res, err := NewPipeline(testLogger(), cfg).Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.RunID)
	s := res.Stats
	assert.Equal(t, 11, s.Read.Lines)
	assert.Equal(t, 1, s.Read.Malformed)
	assert.Equal(t, 1, s.Read.MissingHeadword)
	assert.Equal(t, 1, s.Read.Foreign)
	assert.Equal(t, 9, s.Read.Senses)
	assert.Equal(t, 7, s.SensesKept)
	assert.Equal(t, DropCounts{TooShort: 1, ExcludedTag: 1}, s.SensesDropped)
	assert.Equal(t, 6, s.Keys)
	assert.Equal(t, 4, s.Entries)
	assert.Equal(t, 2, s.EntriesDropped)
	assert.Equal(t, 3, s.Ranked)
	assert.Equal(t, 1, s.Unranked)
	assert.Equal(t, 1, s.FreqCollisions)

	entries := readDeck(t, cfg.Output.CSVPath)
	require.Len(t, entries, 4)

	var words []string
	for _, e := range entries {
		words = append(words, e.Headword)
	}
	assert.Equal(t, []string{"run", "apple", "zebra", "quiz"}, words)

	run := entries[0]
	assert.Equal(t, domain.Rank(2), run.Rank)
	assert.Equal(t, []string{"verb", "noun"}, run.POSOrder)
	assert.Equal(t, []string{"To move swiftly on foot.", "To manage or operate."}, run.SensesByPOS["verb"])
	assert.Equal(t, []string{"An act of running."}, run.SensesByPOS["noun"])
	assert.Equal(t, "/ɹʌn/ (US)", run.IPA)
	assert.Equal(t, []domain.Form{{Label: "past", Value: "ran"}}, run.Forms)
	assert.Equal(t, []string{"run"}, run.Hyphenation)

	apple := entries[1]
	assert.Equal(t, domain.Rank(3), apple.Rank)
	assert.Equal(t, "/ˈæp.əl/", apple.IPA, "IPA filled from the later record")
	assert.Equal(t, "From Old English æppel.", apple.Etymology)
	assert.Equal(t, []string{"A common, round fruit."}, apple.SensesByPOS["noun"])

	assert.Equal(t, domain.Unranked, entries[3].Rank)
	assert.Equal(t, []string{`A short test of "knowledge".`}, entries[3].SensesByPOS["noun"])
}

func TestPipeline_Idempotent(t *testing.T) {
	t.Parallel()

	first := testConfig(t)
	_, err := NewPipeline(testLogger(), first).Run(context.Background())
	require.NoError(t, err)

	// A different degree of parallelism must not change a single byte.
	second := testConfig(t)
	second.Pipeline.Workers = 1
	second.Pipeline.Shards = 1
	second.Pipeline.BatchLines = 100
	_, err = NewPipeline(testLogger(), second).Run(context.Background())
	require.NoError(t, err)

	a, err := os.ReadFile(first.Output.CSVPath)
	require.NoError(t, err)
	b, err := os.ReadFile(second.Output.CSVPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "outputs differ:\n%s\n---\n%s", a, b)
}

func TestPipeline_Limit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Pipeline.Limit = 3

	res, err := NewPipeline(testLogger(), cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Read.Lines)
	assert.Len(t, readDeck(t, cfg.Output.CSVPath), 3)
}

func TestPipeline_NoFrequencyList(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Input.FrequencyPath = ""

	res, err := NewPipeline(testLogger(), cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Ranked)

	var words []string
	for _, e := range readDeck(t, cfg.Output.CSVPath) {
		words = append(words, e.Headword)
	}
	assert.Equal(t, []string{"apple", "quiz", "run", "zebra"}, words)
}

func TestPipeline_ConfigErrorsWriteNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing dump", func(c *config.Config) { c.Input.WiktionaryPath = "/nonexistent/kaikki.jsonl" }},
		{"missing frequency list", func(c *config.Config) { c.Input.FrequencyPath = "/nonexistent/freq.txt" }},
		{"negative threshold", func(c *config.Config) { c.Filter.MinDefinitionLength = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := NewPipeline(testLogger(), cfg).Run(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

			_, statErr := os.Stat(cfg.Output.CSVPath)
			assert.True(t, os.IsNotExist(statErr), "no output expected")
		})
	}
}

func TestPipeline_CanceledContext(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(testLogger(), cfg).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(cfg.Output.CSVPath)
	assert.True(t, os.IsNotExist(statErr), "no output expected")
}

type fakeExporter struct {
	runID     uuid.UUID
	ctxRunID  uuid.UUID
	entries   []domain.Entry
	batchSize int
	err       error
}

func (f *fakeExporter) ReplaceAll(ctx context.Context, runID uuid.UUID, entries []domain.Entry, batchSize int) (int, error) {
	f.runID = runID
	f.ctxRunID, _ = ctxutil.RunIDFromCtx(ctx)
	f.entries = entries
	f.batchSize = batchSize
	return len(entries), f.err
}

func TestPipeline_Export(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Database.BatchSize = 2
	exp := &fakeExporter{}

	res, err := NewPipeline(testLogger(), cfg, WithExporter(exp)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, res.RunID, exp.runID)
	assert.Equal(t, res.RunID, exp.ctxRunID, "run ID travels in the context")
	assert.Equal(t, 2, exp.batchSize)
	assert.Len(t, exp.entries, 4)
	assert.Equal(t, 4, res.Stats.Exported)
}

func TestPipeline_ExportError(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	exp := &fakeExporter{err: errors.New("connection refused")}

	_, err := NewPipeline(testLogger(), cfg, WithExporter(exp)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export catalog")

	// The table is written before the export.
	assert.Len(t, readDeck(t, cfg.Output.CSVPath), 4)
}

func TestPipeline_Progress(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Pipeline.ProgressEvery = 4

	var reports []Progress
	_, err := NewPipeline(testLogger(), cfg, WithProgress(func(p Progress) {
		reports = append(reports, p)
	})).Run(context.Background())
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(reports), 3)
	last := reports[len(reports)-1]
	assert.Equal(t, 11, last.Lines)
	assert.Equal(t, 7, last.Senses)
	assert.Positive(t, last.TotalBytes)
	assert.Equal(t, last.TotalBytes, last.Bytes)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Lines, reports[i-1].Lines)
	}
}

func writeDump(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestPipeline_OverlongLineIsSkipped(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Input.FrequencyPath = ""
	cfg.Pipeline.MaxLineBytes = 4096
	cfg.Input.WiktionaryPath = writeDump(t,
		`{"word": "apple", "pos": "noun", "senses": [{"glosses": ["A common, round fruit."]}]}`,
		`{"word": "set", "pos": "verb", "senses": [{"glosses": ["`+strings.Repeat("x", 200*1024)+`"]}]}`,
		`{"word": "zebra", "pos": "noun", "senses": [{"glosses": ["A striped African equine."]}]}`,
	)

	res, err := NewPipeline(testLogger(), cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Read.Lines)
	assert.Equal(t, 1, res.Stats.Read.Malformed)

	var words []string
	for _, e := range readDeck(t, cfg.Output.CSVPath) {
		words = append(words, e.Headword)
	}
	assert.Equal(t, []string{"apple", "zebra"}, words)
}

func TestPipeline_SequencerBacklogBounded(t *testing.T) {
	t.Parallel()

	lines := make([]string, 400)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"word": "word%03d", "pos": "noun", "senses": [{"glosses": ["definition number %d"]}]}`, i, i)
	}

	cfg := testConfig(t)
	cfg.Input.FrequencyPath = ""
	cfg.Input.WiktionaryPath = writeDump(t, lines...)
	cfg.Pipeline.BatchLines = 1
	cfg.Pipeline.Workers = 4

	var mu sync.Mutex
	maxPending := 0
	p := NewPipeline(testLogger(), cfg)
	p.observePending = func(n int) {
		mu.Lock()
		defer mu.Unlock()
		maxPending = max(maxPending, n)
	}

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 400, res.Stats.Entries)
	assert.LessOrEqual(t, maxPending, 2*cfg.Pipeline.Workers)
}
