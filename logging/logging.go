// Package logging constructs the single *slog.Logger every other
// component receives through its constructor (SPEC_FULL.md §4.12): no
// package-level logger, no global mutable state, matching the
// redesign note in spec.md §9.
package logging

import (
	"log/slog"
	"os"
)

// New builds a text-handler slog.Logger at the given level. An
// unrecognized level falls back to info rather than erroring — level
// parsing failures shouldn't be fatal for a component whose whole
// purpose is reporting failures.
func New(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
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
