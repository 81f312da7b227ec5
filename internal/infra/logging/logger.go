// Package logging provides file-based logging for labelcrew.
// Entries go to the project log (.labelcrew/logs/labelcrew.log) and, when
// they concern a task, to that task's log (.labelcrew/logs/task-N.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes leveled entries to log files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	clock      domain.Clock
	mirror     io.Writer // Optional copy of every entry, e.g. stderr with --verbose
	globalFile *os.File
	taskFiles  map[int]*os.File
	dataDir    string
	mu         sync.Mutex
	level      slog.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock sets the clock used to stamp entries.
func WithClock(c domain.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

// WithMirror copies every written entry to w.
func WithMirror(w io.Writer) Option {
	return func(l *Logger) { l.mirror = w }
}

// New creates a Logger writing under dataDir/logs.
// If dataDir is empty, file output is disabled.
func New(dataDir string, level slog.Level, opts ...Option) *Logger {
	l := &Logger{
		clock:     domain.RealClock{},
		dataDir:   dataDir,
		level:     level,
		taskFiles: make(map[int]*os.File),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New("", slog.LevelError+1)
}

// ParseLevel parses a log level string into slog.Level.
// Unknown values fall back to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

func (l *Logger) openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// writers returns the files an entry for taskID goes to. Must hold l.mu.
func (l *Logger) writers(taskID int) []io.Writer {
	var out []io.Writer

	if l.globalFile == nil {
		if f, err := l.openFile(domain.GlobalLogPath(l.dataDir)); err == nil {
			l.globalFile = f
		}
	}
	if l.globalFile != nil {
		out = append(out, l.globalFile)
	}

	if taskID > 0 {
		f, ok := l.taskFiles[taskID]
		if !ok {
			if opened, err := l.openFile(domain.TaskLogPath(l.dataDir, taskID)); err == nil {
				f = opened
				l.taskFiles[taskID] = f
			}
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.taskFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.taskFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2026-01-30 09:32:51] [INFO] [task-1] [session] message
func formatLog(t time.Time, level slog.Level, taskID int, category, msg string) string {
	taskStr := "global"
	if taskID > 0 {
		taskStr = fmt.Sprintf("task-%d", taskID)
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		taskStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func (l *Logger) log(level slog.Level, taskID int, category, msg string) {
	if level < l.level {
		return
	}
	if l.dataDir == "" && l.mirror == nil {
		return
	}

	entry := formatLog(l.clock.Now(), level, taskID, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, entry)
	}
	if l.dataDir == "" {
		return
	}
	for _, w := range l.writers(taskID) {
		_, _ = io.WriteString(w, entry)
	}
}

// Info logs an info message.
func (l *Logger) Info(taskID int, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID int, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID int, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID int, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}
