package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "wrn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger will make a new tint logger on stdout. The level comes from
// VOID_LOG_LEVEL when it is set, otherwise from fallback; debug forces
// debug output.
func InitLogger(fallback string, debug bool) {
	level := ParseLevel(fallback)
	if logl, ok := os.LookupEnv("VOID_LOG_LEVEL"); ok {
		level = ParseLevel(logl)
	}
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(New(os.Stdout, level))
}

// New builds a tint backed logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}
