// Package log provides the structured logger used to report diagnostics at
// the point where a process or worker failure is detected.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Logger is the structured logger used across the module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Syncer is implemented by loggers that buffer output and must be flushed
// on teardown.
type Syncer interface {
	Sync() error
}

// SlogLogger is a Logger backed by log/slog.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a text-format SlogLogger writing to out.
func NewSlogLogger(level slog.Level, out io.Writer) *SlogLogger {
	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// NewSlogJSONLogger returns a JSON-format SlogLogger writing to out.
func NewSlogJSONLogger(level slog.Level, out io.Writer) *SlogLogger {
	return &SlogLogger{
		logger: slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}

// Nop discards everything.
var Nop Logger = nop{}

var (
	mu      sync.RWMutex
	current Logger = Nop
)

// Init installs l as the process-wide logger. A nil l installs Nop.
func Init(l Logger) {
	if l == nil {
		l = Nop
	}
	mu.Lock()
	current = l
	mu.Unlock()
}

// Default returns the process-wide logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Teardown flushes the process-wide logger if it buffers output and resets
// the default to Nop.
func Teardown() error {
	mu.Lock()
	l := current
	current = Nop
	mu.Unlock()
	if s, ok := l.(Syncer); ok {
		return s.Sync()
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(levelStr string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", levelStr)
	}
	return level, nil
}
