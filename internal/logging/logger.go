// Package logging builds the structured loggers used across todolist.
//
// Loggers are *slog.Logger values backed by charmbracelet/log, so callers
// only depend on log/slog while output gets leveled, colored text (or JSON).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Options configures NewLogger.
type Options struct {
	Level     string
	Writer    io.Writer
	Component string
	// JSON switches to one JSON object per line.
	JSON bool
	// Timestamps prefixes every line with the time.
	Timestamps bool
}

// NewLogger returns a slog.Logger writing to opts.Writer (stderr when nil).
func NewLogger(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	formatter := log.TextFormatter
	if opts.JSON {
		formatter = log.JSONFormatter
	}
	h := log.NewWithOptions(writer, log.Options{
		Level:           ParseLevel(opts.Level),
		Formatter:       formatter,
		ReportTimestamp: opts.Timestamps,
		Prefix:          strings.TrimSpace(opts.Component),
	})
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to a charmbracelet/log level. Unknown names
// fall back to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return log.WarnLevel
	case "":
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// File is an append-only log file. The TUI owns the terminal, so its logs
// go here instead of stderr.
type File struct {
	f *os.File
}

// OpenFile creates (or reuses) the log file at path, creating parent
// directories as needed.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &File{f: f}, nil
}

// Write implements io.Writer.
func (l *File) Write(p []byte) (int, error) {
	if l == nil || l.f == nil {
		return len(p), nil
	}
	return l.f.Write(p)
}

// Close releases the file handle.
func (l *File) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}
