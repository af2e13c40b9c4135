// Package logging builds the loggers handed to containers and services.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type Logger = slog.Logger

// Handler names accepted by NewLogger.
const (
	HandlerText  = "text"
	HandlerPlain = "plain"
	HandlerJSON  = "json"
)

func ToLogLevel(logLevel string) slog.Level {
	switch logLevel {
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

// NewLogger writes to stderr.
func NewLogger(logLevel string, logHandler string) *Logger {
	return NewLoggerTo(os.Stderr, logLevel, logHandler)
}

// NewLoggerTo builds a slog logger on w. "json" selects the JSON handler,
// "plain" an uncolored tint handler, anything else a colored tint handler.
func NewLoggerTo(w io.Writer, logLevel string, logHandler string) *Logger {
	slogLevel := ToLogLevel(logLevel)

	var handler slog.Handler
	switch logHandler {
	case HandlerJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     slogLevel,
		})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.Kitchen,
			NoColor:    logHandler == HandlerPlain,
		})
	}

	return slog.New(handler)
}
