// Package logging sets up the bridge's slog handlers: a server log file, the
// console, the capture writer behind the LastLog state and a separate
// request log for the status API.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"simbridge/pkg/config"
)

// RequestLogger logs status API requests. It discards until Init runs.
var RequestLogger = slog.New(slog.DiscardHandler)

// consoleOut is where the console handler writes.
var consoleOut io.Writer = os.Stdout

// Init installs the default logger and RequestLogger. Existing log files
// are rotated to .old first. The returned function closes the files.
func Init(cfg *config.LogConfig) (func(), error) {
	rotatePaths(cfg.Server.Path, cfg.Requests.Path)
	EnableTrace(cfg.Trace || strings.EqualFold(strings.TrimSpace(cfg.Server.Level), "trace"))

	serverFile, err := openLog(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	requestFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		closeAll(serverFile)
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	level := ParseLevel(cfg.Server.Level)
	handlers := []slog.Handler{
		// Console stays at INFO or above even when the file logs DEBUG.
		slog.NewTextHandler(consoleOut, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	if serverFile != nil {
		handlers = append(handlers, slog.NewTextHandler(serverFile, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		}))
	}
	slog.SetDefault(slog.New(&multiHandler{handlers: handlers}))

	if requestFile != nil {
		RequestLogger = slog.New(slog.NewTextHandler(requestFile, &slog.HandlerOptions{Level: ParseLevel(cfg.Requests.Level)}))
	} else {
		RequestLogger = slog.New(slog.DiscardHandler)
	}

	return func() { closeAll(serverFile, requestFile) }, nil
}

// ParseLevel maps a config level name to a slog level, defaulting to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openLog opens path for appending. An empty path means no file.
func openLog(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// multiHandler fans a record out to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. A failing handler does not starve the others.
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = fn(h)
	}
	return &multiHandler{handlers: next}
}

// rotatePaths renames existing log files to .old so each run starts fresh
// and the previous run is kept.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		oldPath := p + ".old"
		_ = os.Remove(oldPath)
		_ = os.Rename(p, oldPath)
	}
}
