// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs a tint handler writing to w as the default slog logger.
// Verbose enables debug records. The standard library logger is redirected
// to slog so output from dependencies shares the same format.
func Setup(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(NewHandler(w, level))
	slog.SetDefault(logger)

	lw := &slogWriter{logger: logger}
	log.Default().SetOutput(lw)
	log.SetFlags(0)

	return logger
}

// NewHandler returns the tint handler used for diagnostics.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(w),
	})
}

// slogWriter forwards standard library log lines to slog at debug level.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
