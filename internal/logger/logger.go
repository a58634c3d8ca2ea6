package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ParseLevel maps a config level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// Logger writes leveled text records. Nothing is written until a file or
// writer is attached, so an interactive wizard never gets log lines over its
// prompts.
type Logger struct {
	mu    sync.Mutex
	level slog.LevelVar
	out   io.Writer
	file  *os.File
	log   *slog.Logger
}

// Default backs the package level functions.
var Default = New()

// New returns a discarding logger, honouring SYNCWIZARD_LOG_LEVEL and
// SYNCWIZARD_LOG_FILE when they are set.
func New() *Logger {
	l := &Logger{out: io.Discard}
	l.level.Set(slog.LevelInfo)
	l.log = slog.New(slog.NewTextHandler(writerFunc(l.write), &slog.HandlerOptions{Level: &l.level}))

	if lvl, err := ParseLevel(os.Getenv("SYNCWIZARD_LOG_LEVEL")); err == nil {
		l.level.Set(lvl)
	}
	if path := os.Getenv("SYNCWIZARD_LOG_FILE"); path != "" {
		_ = l.openFile(path)
	}
	return l
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func (l *Logger) write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

// Configure applies the level and file from the loaded config. An empty level
// keeps the current one.
func (l *Logger) Configure(level, file string) error {
	if level != "" {
		lvl, err := ParseLevel(level)
		if err != nil {
			return err
		}
		l.level.Set(lvl)
	}
	if file == "" {
		return nil
	}
	return l.openFile(file)
}

func (l *Logger) openFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.out = f
	return nil
}

// SetOutput redirects records to w. Any open log file is kept until Close.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetLevel sets the minimum level written.
func (l *Logger) SetLevel(level slog.Level) { l.level.Set(level) }

// Enabled reports whether records at level are written.
func (l *Logger) Enabled(level slog.Level) bool { return level >= l.level.Level() }

// Close closes the log file, if any, and goes back to discarding.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = io.Discard
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) logf(level slog.Level, format string, v ...any) {
	if !l.Enabled(level) {
		return
	}
	l.log.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...any) { l.logf(slog.LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.logf(slog.LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.logf(slog.LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.logf(slog.LevelError, format, v...) }

func Debug(format string, v ...any) { Default.Debug(format, v...) }
func Info(format string, v ...any)  { Default.Info(format, v...) }
func Warn(format string, v ...any)  { Default.Warn(format, v...) }
func Error(format string, v ...any) { Default.Error(format, v...) }

// Configure configures the default logger.
func Configure(level, file string) error { return Default.Configure(level, file) }

// Close closes the default logger's file.
func Close() error { return Default.Close() }
