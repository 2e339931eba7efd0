package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w. Debug enables debug records with
// source locations.
func New(w io.Writer, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
