// Package log provides structured logging for shine.
// Entries carry a level, a category and key=value fields. Logging stays
// disabled until InitWithTeaLog or InitWithWriter is called (the CLI does this
// for --debug or SHINE_DEBUG).
package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category groups related log messages.
type Category string

const (
	CatLang      Category = "lang"      // Language definition loading and lookup
	CatHighlight Category = "highlight" // Matcher and state machine
	CatMerge     Category = "merge"     // Tag stream merging
	CatTree      Category = "tree"      // Tree extraction and insertion
	CatConfig    Category = "config"    // Configuration loading/saving
	CatWatcher   Category = "watcher"   // File watcher events
	CatCache     Category = "cache"     // Result cache operations
	CatTrace     Category = "trace"     // Tracing setup and shutdown
)

// TimeFormat is the timestamp layout that opens every entry.
const TimeFormat = "2006-01-02T15:04:05"

// Logger writes formatted entries to a sink.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	enabled  bool
	minLevel Level
	now      func() time.Time
}

var (
	stateMu sync.RWMutex
	current *Logger
)

func install(l *Logger) {
	stateMu.Lock()
	current = l
	stateMu.Unlock()
}

func active() *Logger {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return current
}

// InitWithTeaLog opens path through tea.LogToFile and logs everything from
// debug up into it. The returned function closes the file.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	install(&Logger{out: f, enabled: true, minLevel: LevelDebug, now: time.Now})
	return func() {
		Reset()
		_ = f.Close()
	}, nil
}

// InitWithWriter routes log output to w. Used by tests and by callers that
// already own a sink.
func InitWithWriter(w io.Writer, minLevel Level) {
	install(&Logger{out: w, enabled: true, minLevel: minLevel, now: time.Now})
}

// Reset drops the global logger. Subsequent calls become no-ops.
func Reset() {
	install(nil)
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := active(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := active(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	emit(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	emit(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	emit(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	emit(LevelError, cat, msg, fields)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	emit(LevelError, cat, msg, append(fields, "error", errString(err)))
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

func emit(level Level, cat Category, msg string, fields []any) {
	l := active()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || level < l.minLevel || l.out == nil {
		return
	}
	_, _ = io.WriteString(l.out, FormatEntry(l.now(), level, cat, msg, fields))
}

// FormatEntry renders one log line:
//
//	2025-12-06T10:45:00 [ERROR] [merge] message key=value key2=value2
//
// A trailing key without a value is written as key=<missing>.
func FormatEntry(ts time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	b.WriteString(ts.Format(TimeFormat))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] [")
	b.WriteString(string(cat))
	b.WriteString("] ")
	b.WriteString(msg)

	for len(fields) > 0 {
		key := fields[0]
		var val any = "<missing>"
		if len(fields) > 1 {
			val = fields[1]
			fields = fields[2:]
		} else {
			fields = nil
		}
		fmt.Fprintf(&b, " %v=%v", key, val)
	}
	b.WriteByte('\n')
	return b.String()
}
