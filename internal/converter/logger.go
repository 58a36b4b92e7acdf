package converter

import (
	"io"
	"log"
	"strings"
)

// =============================================================================
// LOGGING
// =============================================================================

// Logger is the logging interface used by the pipeline, the CLI and the
// upload service.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a log_level setting to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// NewLogger returns a Logger writing to out, dropping messages below level.
func NewLogger(level string, out io.Writer) Logger {
	return &levelLogger{
		level: ParseLevel(level),
		out:   log.New(out, "", log.LstdFlags),
	}
}

// NopLogger discards everything.
func NopLogger() Logger {
	return &levelLogger{level: LevelError + 1, out: log.New(io.Discard, "", 0)}
}

type levelLogger struct {
	level Level
	out   *log.Logger
}

func (l *levelLogger) logf(level Level, tag, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf("["+tag+"] "+msg, args...)
}

func (l *levelLogger) Debug(msg string, args ...interface{}) {
	l.logf(LevelDebug, "DEBUG", msg, args...)
}

func (l *levelLogger) Info(msg string, args ...interface{}) {
	l.logf(LevelInfo, "INFO", msg, args...)
}

func (l *levelLogger) Warn(msg string, args ...interface{}) {
	l.logf(LevelWarn, "WARN", msg, args...)
}

func (l *levelLogger) Error(msg string, args ...interface{}) {
	l.logf(LevelError, "ERROR", msg, args...)
}
