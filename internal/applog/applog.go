// Package applog wires up the tool's own operational logging: progress
// and timing information about what the linter is doing, as distinct from
// the classified findings internal/diag prints about the file being
// checked. It fans a single *slog.Logger out to a text handler on stderr
// and, when a trace file is requested, a second JSON handler, using
// slog-multi to combine them rather than hand-rolling a multi-writer.
package applog

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// New builds the process-wide logger. verbose raises the stderr handler
// to Debug level; traceOut, if non-nil, receives every record as JSON
// regardless of verbosity, for --trace-offsets style diagnosis.
func New(verbose bool, traceOut io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	if traceOut != nil {
		handlers = append(handlers, slog.NewJSONHandler(traceOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// Discard returns a logger that drops every record; lint.Run falls back
// to it when no logger is supplied.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
