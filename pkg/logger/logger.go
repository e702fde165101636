package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to stdout.
func New(service, lvl string, addSource bool, environment string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, lvl, addSource, environment)
}

func NewWithWriter(w io.Writer, service, lvl string, addSource bool, environment string) *slog.Logger {
	return NewWithLevel(w, service, ParseLevel(lvl), addSource, environment)
}

// NewLevel returns a level that can be changed while loggers built on it run.
func NewLevel(lvl string) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(lvl))
	return level
}

func NewWithLevel(w io.Writer, service string, level slog.Leveler, addSource bool, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}

	var handler slog.Handler
	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("environment", environment),
	)
}

// ParseLevel maps a config level name to a slog level. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
