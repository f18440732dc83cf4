package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

var frequencyModes = map[string]bool{"position": true, "rank": true, "count": true}

// Validate performs business-rule validation on the loaded configuration,
// including that configured input files exist and are regular files.
// All problems are reported at once as a *domain.ValidationError.
func (c *Config) Validate() error {
	var errs []domain.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, domain.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Input.WiktionaryPath) == "" {
		add("input.wiktionary_path", "required")
	} else if err := checkFile(c.Input.WiktionaryPath); err != nil {
		add("input.wiktionary_path", "%v", err)
	}
	if c.Input.FrequencyPath != "" {
		if err := checkFile(c.Input.FrequencyPath); err != nil {
			add("input.frequency_path", "%v", err)
		}
	}
	if !frequencyModes[strings.ToLower(strings.TrimSpace(c.Input.FrequencyMode))] {
		add("input.frequency_mode", "must be one of position, rank, count (got %q)", c.Input.FrequencyMode)
	}

	if strings.TrimSpace(c.Output.CSVPath) == "" {
		add("output.csv_path", "required")
	}

	if c.Filter.MinDefinitionLength < 0 {
		add("filter.min_definition_length", "must be >= 0 (got %d)", c.Filter.MinDefinitionLength)
	}

	if c.Pipeline.Limit < 0 {
		add("pipeline.limit", "must be >= 0 (got %d)", c.Pipeline.Limit)
	}
	if c.Pipeline.Workers < 0 {
		add("pipeline.workers", "must be >= 0 (got %d)", c.Pipeline.Workers)
	}
	if c.Pipeline.Shards < 0 {
		add("pipeline.shards", "must be >= 0 (got %d)", c.Pipeline.Shards)
	}
	if c.Pipeline.BatchLines <= 0 {
		add("pipeline.batch_lines", "must be > 0 (got %d)", c.Pipeline.BatchLines)
	}
	if c.Pipeline.MaxRank < 0 {
		add("pipeline.max_rank", "must be >= 0 (got %d)", c.Pipeline.MaxRank)
	}
	if c.Pipeline.MaxLineBytes <= 0 {
		add("pipeline.max_line_bytes", "must be > 0 (got %d)", c.Pipeline.MaxLineBytes)
	}
	if c.Pipeline.ProgressEvery < 0 {
		add("pipeline.progress_every", "must be >= 0 (got %d)", c.Pipeline.ProgressEvery)
	}

	if c.Database.Enabled() {
		if c.Database.BatchSize <= 0 {
			add("database.batch_size", "must be > 0 (got %d)", c.Database.BatchSize)
		}
		if c.Database.MaxConns <= 0 {
			add("database.max_conns", "must be > 0 (got %d)", c.Database.MaxConns)
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			add("database.min_conns", "must be between 0 and max_conns (got %d)", c.Database.MinConns)
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file %s not found", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
