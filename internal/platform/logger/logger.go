package logger

import (
	"log/slog"
	"os"
)

// New returns the JSON slog logger every component receives at construction.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
