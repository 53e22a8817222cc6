package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured JSON logger at the configured level
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
