package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. LOG_LEVEL overrides def and
// LOG_FORMAT=json switches to JSON output.
func Init(def slog.Level) {
	slog.SetDefault(New(os.Stderr, def))
}

func New(w io.Writer, def slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(os.Getenv("LOG_LEVEL"), def)}

	if os.Getenv("LOG_FORMAT") == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Level parses a LOG_LEVEL value, falling back to def.
func Level(s string, def slog.Level) slog.Level {
	switch s {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}
