// Command deckgen builds a frequency-ranked flashcard deck table from a
// Kaikki.org Wiktionary JSONL dump.
//
// Usage:
//
//	deckgen [flags] [input.jsonl]
//
// Flags:
//
//	-o               output CSV path
//	-l, -limit       process at most N non-blank input lines (0 = all)
//	-min-def-length  drop definitions shorter than N characters
//	-freq            frequency list (one word per line, most frequent first)
//	-config          path to YAML config file
//	-progress        show a progress bar on stdout
//	-version         print version and exit
//
// Flags override the config file, which overrides the defaults.
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/myenglish-deckgen/internal/adapter/postgres/deckentry"
	"github.com/heartmarshall/myenglish-deckgen/internal/app"
	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen"
	"github.com/heartmarshall/myenglish-deckgen/internal/config"
	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// Compile-time interface assertion.
var _ deckgen.Exporter = (*deckentry.Repo)(nil)

func main() {
	outputFlag := flag.String("o", "", "output CSV path")
	var limit int
	flag.IntVar(&limit, "l", 0, "process at most N non-blank input lines (0 = all)")
	flag.IntVar(&limit, "limit", 0, "same as -l")
	minDefFlag := flag.Int("min-def-length", 0, "drop definitions shorter than N characters")
	freqFlag := flag.String("freq", "", "frequency list path")
	configFlag := flag.String("config", "", "path to YAML config file")
	progressFlag := flag.Bool("progress", false, "show a progress bar")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(app.BuildVersion())
		return
	}
	if flag.NArg() > 1 {
		log.Fatalf("expected at most one input path, got %d", flag.NArg())
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// CLI flags override config.
	overrides := app.Overrides{
		Input:         flag.Arg(0),
		Output:        *outputFlag,
		FrequencyPath: *freqFlag,
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l", "limit":
			overrides.Limit = &limit
		case "min-def-length":
			overrides.MinDefinitionLength = minDefFlag
		}
	})
	overrides.Apply(cfg)

	logger := app.NewLogger(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.Run(ctx, logger, *cfg, app.RunOptions{Progress: *progressFlag})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				logger.Error("invalid configuration",
					slog.String("field", fe.Field),
					slog.String("error", fe.Message),
				)
			}
		} else {
			logger.Error("deck build failed", slog.String("error", err.Error()))
		}
		stop()
		os.Exit(1)
	}

	logger.Info("deck written",
		slog.String("path", res.OutputPath),
		slog.Int("entries", res.Stats.Entries),
	)
}
