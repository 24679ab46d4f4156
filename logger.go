package splitmerge

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-logr/logr"
)

// NewLogger returns a logger writing text to w. At verbosity 0 only
// V(0) messages are written; each increment admits one more V level.
func NewLogger(w io.Writer, verbosity int) logr.Logger {
	return logr.FromSlogHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(int(slog.LevelInfo) - verbosity),
	}))
}

// WithLogger returns a copy of ctx carrying log.
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}

// LoggerFrom returns the logger carried by ctx, or one that discards.
func LoggerFrom(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
