// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context. The watch TUI owns
// the terminal, so it logs to a file instead of stdout.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	return initTo(os.Stdout, service, level)
}

// InitFile creates a structured logger writing JSON to the given file path,
// appending if it exists. Falls back to io.Discard when the file cannot be
// opened — a dashboard without a log file still has to run.
func InitFile(path, service string, level slog.Level) *slog.Logger {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return initTo(io.Discard, service, level)
	}
	return initTo(f, service, level)
}

func initTo(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}
