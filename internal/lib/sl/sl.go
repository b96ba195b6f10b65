// Package sl holds the slog setup shared by the service and small attribute helpers.
package sl

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger, or a text logger when env is "local".
func New(env string) *slog.Logger {
	var h slog.Handler
	switch env {
	case "local":
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Err returns the error as an "error" attribute.
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
