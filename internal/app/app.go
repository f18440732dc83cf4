package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myenglish-deckgen/internal/adapter/postgres"
	"github.com/heartmarshall/myenglish-deckgen/internal/adapter/postgres/deckentry"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen"
	"github.com/heartmarshall/myenglish-deckgen/internal/config"
)

// Overrides are command-line values applied on top of the loaded config.
// Zero values and nil pointers leave the config untouched.
type Overrides struct {
	Input               string
	Output              string
	FrequencyPath       string
	Limit               *int
	MinDefinitionLength *int
}

// Apply writes the set overrides into cfg.
func (o Overrides) Apply(cfg *config.Config) {
	if o.Input != "" {
		cfg.Input.WiktionaryPath = o.Input
	}
	if o.Output != "" {
		cfg.Output.CSVPath = o.Output
	}
	if o.FrequencyPath != "" {
		cfg.Input.FrequencyPath = o.FrequencyPath
	}
	if o.Limit != nil {
		cfg.Pipeline.Limit = *o.Limit
	}
	if o.MinDefinitionLength != nil {
		cfg.Filter.MinDefinitionLength = *o.MinDefinitionLength
	}
}

// RunOptions controls the terminal side of a run.
type RunOptions struct {
	// Progress renders a progress bar on stdout while the dump is read.
	Progress bool
}

// Run builds the deck described by cfg. It validates the configuration
// before touching the database or the input, connects and migrates the
// catalog when a DSN is configured, and runs the pipeline.
func Run(ctx context.Context, logger *slog.Logger, cfg config.Config, opts RunOptions) (deckgen.Result, error) {
	if err := cfg.Validate(); err != nil {
		return deckgen.Result{}, fmt.Errorf("config: %w", err)
	}

	logger.Info("starting deckgen",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.Bool("catalog_export", cfg.Database.Enabled()),
	)

	var pipelineOpts []deckgen.Option

	if cfg.Database.Enabled() {
		n, err := postgres.MigrateDSN(ctx, cfg.Database.DSN)
		if err != nil {
			return deckgen.Result{}, fmt.Errorf("migrate catalog: %w", err)
		}
		logger.Info("catalog schema ready", slog.Int("applied", n))

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return deckgen.Result{}, fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		repo := deckentry.New(pool, postgres.NewTxManager(pool))
		pipelineOpts = append(pipelineOpts, deckgen.WithExporter(repo))
	}

	if opts.Progress {
		bar := newProgressBar()
		defer bar.Stop()
		pipelineOpts = append(pipelineOpts, deckgen.WithProgress(bar.Update))
	}

	return deckgen.NewPipeline(logger, cfg, pipelineOpts...).Run(ctx)
}
