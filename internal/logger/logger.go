// Package logger provides structured logging setup for patchpal.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Strob0t/patchpal/internal/config"
)

// asyncBuffer is the number of records the async handler holds before dropping.
const asyncBuffer = 1024

// New creates a *slog.Logger writing JSON to w with a "service" attribute on
// every record. With cfg.Async the handler never blocks the caller.
func New(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(handler, asyncBuffer)
		handler, closer = ah, ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// OpenFile creates a logger appending to cfg.File. The returned Closer
// flushes pending records and closes the file.
func OpenFile(cfg config.Logging) (*slog.Logger, Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file: %w", err)
	}
	l, inner := New(cfg, f)
	return l, closerFunc(func() {
		inner.Close()
		_ = f.Close()
	}), nil
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VerbosityLevel maps a repeated -v count onto a level name. Zero keeps fallback.
func VerbosityLevel(count int, fallback string) string {
	switch {
	case count >= 2:
		return "debug"
	case count == 1:
		return "info"
	default:
		return fallback
	}
}
