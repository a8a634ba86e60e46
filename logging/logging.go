package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options describes logger construction parameters
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record in addition to stderr
	File string
	// Writer overrides stderr; used by tests
	Writer io.Writer
}

// New constructs a slog logger. The returned closer releases the log file, if any,
// and is always non-nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	if opts.Writer != nil {
		out = opts.Writer
	}

	closer := io.Closer(nopCloser{})
	if path := strings.TrimSpace(opts.File); path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("ensure log directory: %w", err)
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().Format(time.RFC3339))
			}
			return attr
		},
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when logger is nil
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// LogImageProcessed records the outcome of hashing one image. Failures are
// warnings because a bad file never stops a scan.
func LogImageProcessed(logger *slog.Logger, path string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("image skipped", "path", path, "error", err)
		return
	}
	logger.Debug("image hashed", "path", path)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
