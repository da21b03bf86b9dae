package logger

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// New builds the process logger: JSON on stdout at the configured level.
// Unknown level strings fall back to info.
func New(level string) *slog.Logger {
	logLevel, ok := levels[strings.ToLower(level)]
	if !ok {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
