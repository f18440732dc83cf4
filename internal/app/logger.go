package app

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/heartmarshall/myenglish-deckgen/internal/config"
	"github.com/heartmarshall/myenglish-deckgen/pkg/ctxutil"
)

// NewLogger creates a *slog.Logger writing to w based on the provided
// LogConfig and sets it as the default logger via slog.SetDefault.
//
// Format "json" produces one JSON object per line (batch jobs, log shipping).
// Format "text" produces key=value output; at debug level it adds source info.
// Level is one of: debug, info, warn, error (case-insensitive); defaults to info.
// Records logged with a context carrying a run ID get a run_id attribute.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	logger := slog.New(runIDHandler{newHandler(w, cfg)})
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	opts.AddSource = level <= slog.LevelDebug
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runIDHandler adds the run ID from the record's context.
type runIDHandler struct {
	slog.Handler
}

func (h runIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctxutil.RunIDFromCtx(ctx); ok {
		r.AddAttrs(slog.String("run_id", id.String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runIDHandler{h.Handler.WithAttrs(attrs)}
}

func (h runIDHandler) WithGroup(name string) slog.Handler {
	return runIDHandler{h.Handler.WithGroup(name)}
}
