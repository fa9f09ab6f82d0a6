// Package logging builds the structured logger shared by a run.
package logging

import (
	"io"
	"log/slog"
)

// Options configures New.
type Options struct {
	// Format is "json" for JSON records; anything else selects text.
	Format string
	// Verbose lowers the level to debug.
	Verbose bool
	// RunID, if set, is attached to every record as run_id.
	RunID string
}

// New returns a logger writing to w. Diagnostics go to stderr in the CLI so
// the report on stdout stays machine-readable.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.RunID != "" {
		logger = logger.With("run_id", opts.RunID)
	}
	return logger
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
