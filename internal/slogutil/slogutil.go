package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// LevelSilent is above every standard level.
const LevelSilent = slog.Level(100)

// NewLogger creates a human-format logger without color.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHumanHandler(w, &HumanOptions{Level: level}))
}

// NewDiscardLogger creates a logger that discards all output.
// Useful for tests or when logging should be completely suppressed.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHumanHandler(io.Discard, &HumanOptions{Level: LevelSilent}))
}

// Options selects the logger built by Setup.
type Options struct {
	Format string     // "human" (default) or "json"
	Level  slog.Level // minimum level
	// File additionally writes logs to this path, rotated at MaxSize.
	File       string
	MaxSize    string // e.g. "10MB"; empty disables rotation
	MaxBackups int
}

// Setup builds the process logger writing to w (normally stderr). The
// returned closer releases the log file, if any, and is never nil.
func Setup(w io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	primary, err := newHandler(w, opts.Format, opts.Level, isTerminal(w))
	if err != nil {
		return nil, nil, err
	}
	if opts.File == "" {
		return slog.New(primary), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(opts.File, ParseSize(opts.MaxSize), opts.MaxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file, err := newHandler(rf, opts.Format, opts.Level, false)
	if err != nil {
		_ = rf.Close()
		return nil, nil, err
	}
	return slog.New(NewTeeHandler(primary, file)), rf, nil
}

func newHandler(w io.Writer, format string, level slog.Level, color bool) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "human", "text":
		return NewHumanHandler(w, &HumanOptions{Level: level, Color: color}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (use: human, json)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// quiet wins; otherwise 0 is warn, 1 is info and anything higher is debug.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return LevelSilent
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// TeeHandler writes logs to multiple handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

// Enabled returns true if any handler is enabled for the level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes the record to all handlers.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}
