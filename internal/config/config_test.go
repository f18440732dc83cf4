package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "deckgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", name, err)
	}
	return path
}

const validYAML = `
input:
  wiktionary_path: "kaikki.jsonl"
  frequency_path: "freq.txt"
  frequency_mode: "count"
  language: "English"

output:
  csv_path: "out/deck.csv"

filter:
  min_definition_length: 15
  excluded_tags: ["no-gloss", "obsolete"]

pipeline:
  limit: 5000
  workers: 3
  shards: 8
  batch_lines: 128
  max_rank: 50000

database:
  dsn: "postgres://u:p@localhost:5432/deck"
  max_conns: 10
  min_conns: 2
  max_conn_lifetime: "2h"
  batch_size: 250

log:
  level: "debug"
  format: "json"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Input
	if cfg.Input.WiktionaryPath != "kaikki.jsonl" {
		t.Errorf("input.wiktionary_path = %q", cfg.Input.WiktionaryPath)
	}
	if cfg.Input.FrequencyMode != "count" {
		t.Errorf("input.frequency_mode = %q, want count", cfg.Input.FrequencyMode)
	}

	// Output
	if cfg.Output.CSVPath != "out/deck.csv" {
		t.Errorf("output.csv_path = %q", cfg.Output.CSVPath)
	}

	// Filter
	if cfg.Filter.MinDefinitionLength != 15 {
		t.Errorf("filter.min_definition_length = %d, want 15", cfg.Filter.MinDefinitionLength)
	}
	if len(cfg.Filter.ExcludedTags) != 2 || cfg.Filter.ExcludedTags[1] != "obsolete" {
		t.Errorf("filter.excluded_tags = %v", cfg.Filter.ExcludedTags)
	}

	// Pipeline
	if cfg.Pipeline.Limit != 5000 {
		t.Errorf("pipeline.limit = %d, want 5000", cfg.Pipeline.Limit)
	}
	if cfg.Pipeline.Shards != 8 {
		t.Errorf("pipeline.shards = %d, want 8", cfg.Pipeline.Shards)
	}
	if cfg.Pipeline.MaxRank != 50000 {
		t.Errorf("pipeline.max_rank = %d, want 50000", cfg.Pipeline.MaxRank)
	}
	if cfg.Pipeline.ProgressEvery != 10000 {
		t.Errorf("pipeline.progress_every = %d, want 10000 (default)", cfg.Pipeline.ProgressEvery)
	}
	if cfg.Pipeline.MaxLineBytes != 16<<20 {
		t.Errorf("pipeline.max_line_bytes = %d, want %d (default)", cfg.Pipeline.MaxLineBytes, 16<<20)
	}

	// Database
	if !cfg.Database.Enabled() {
		t.Error("database should be enabled when dsn is set")
	}
	if cfg.Database.MaxConnLifetime != 2*time.Hour {
		t.Errorf("database.max_conn_lifetime = %v, want 2h", cfg.Database.MaxConnLifetime)
	}
	if cfg.Database.BatchSize != 250 {
		t.Errorf("database.batch_size = %d, want 250", cfg.Database.BatchSize)
	}

	// Log
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DECKGEN_MIN_DEF_LENGTH", "3")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Filter.MinDefinitionLength != 3 {
		t.Errorf("filter.min_definition_length = %d, want 3 (ENV override)", cfg.Filter.MinDefinitionLength)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
}

func TestLoad_NoFile_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Filter.MinDefinitionLength != 10 {
		t.Errorf("filter.min_definition_length = %d, want 10 (default)", cfg.Filter.MinDefinitionLength)
	}
	if len(cfg.Filter.ExcludedTags) != 1 || cfg.Filter.ExcludedTags[0] != "no-gloss" {
		t.Errorf("filter.excluded_tags = %v, want [no-gloss]", cfg.Filter.ExcludedTags)
	}
	if cfg.Input.Language != "English" {
		t.Errorf("input.language = %q, want English", cfg.Input.Language)
	}
	if cfg.Output.CSVPath != "english.csv" {
		t.Errorf("output.csv_path = %q, want english.csv", cfg.Output.CSVPath)
	}
	if cfg.Pipeline.MaxRank != 100000 {
		t.Errorf("pipeline.max_rank = %d, want 100000", cfg.Pipeline.MaxRank)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled by default")
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/deckgen.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}

	t.Setenv("CONFIG_PATH", "/nonexistent/deckgen.yaml")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing CONFIG_PATH file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Input.WiktionaryPath = touch(t, dir, "kaikki.jsonl")
	cfg.Output.CSVPath = filepath.Join(dir, "deck.csv")
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing input", func(c *Config) { c.Input.WiktionaryPath = "" }, "input.wiktionary_path"},
		{"input not found", func(c *Config) { c.Input.WiktionaryPath = "/nonexistent/kaikki.jsonl" }, "input.wiktionary_path"},
		{"input is dir", func(c *Config) { c.Input.WiktionaryPath = os.TempDir() }, "input.wiktionary_path"},
		{"frequency not found", func(c *Config) { c.Input.FrequencyPath = "/nonexistent/freq.txt" }, "input.frequency_path"},
		{"bad frequency mode", func(c *Config) { c.Input.FrequencyMode = "zipf" }, "input.frequency_mode"},
		{"empty output", func(c *Config) { c.Output.CSVPath = " " }, "output.csv_path"},
		{"negative threshold", func(c *Config) { c.Filter.MinDefinitionLength = -1 }, "filter.min_definition_length"},
		{"negative limit", func(c *Config) { c.Pipeline.Limit = -5 }, "pipeline.limit"},
		{"zero batch", func(c *Config) { c.Pipeline.BatchLines = 0 }, "pipeline.batch_lines"},
		{"zero line cap", func(c *Config) { c.Pipeline.MaxLineBytes = 0 }, "pipeline.max_line_bytes"},
		{"db batch", func(c *Config) {
			c.Database.DSN = "postgres://localhost/deck"
			c.Database.BatchSize = 0
		}, "database.batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *domain.ValidationError, got %T", err)
			}
			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("field %s not reported in %+v", tt.field, ve.Errors)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.Input.WiktionaryPath = ""
	cfg.Filter.MinDefinitionLength = -1
	cfg.Pipeline.Workers = -1

	var ve *domain.ValidationError
	if err := cfg.Validate(); !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %+v", len(ve.Errors), ve.Errors)
	}
}
