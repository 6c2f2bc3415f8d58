package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
)

// setupLogging returns a logger writing text records to stderr and, when a
// log file is configured, to that file as well. The file is rotated to
// <file>.1 on start once it exceeds the configured size. The logger is
// usable even when an error is returned.
func setupLogging(cfg config.LogConfig, verbose bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return slog.New(slog.NewTextHandler(os.Stderr, nil)), nopCloser{},
				fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	stderr := slog.NewTextHandler(os.Stderr, opts)
	if cfg.File == "" {
		return slog.New(stderr), nopCloser{}, nil
	}

	f, err := openLogFile(cfg.File, cfg.MaxSize)
	if err != nil {
		return slog.New(stderr), nopCloser{}, err
	}
	return slog.New(fanout{stderr, slog.NewTextHandler(f, opts)}), f, nil
}

func openLogFile(path string, maxSize int64) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if info, err := os.Stat(path); err == nil && maxSize > 0 && info.Size() > maxSize {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, child := range h {
		if child.Enabled(ctx, r.Level) {
			errs = append(errs, child.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, child := range h {
		out[i] = child.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, child := range h {
		out[i] = child.WithGroup(name)
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
