// Package logging provides a small leveled wrapper over the standard
// library's log package: plain log.Printf/log.Fatalf call sites, with
// a level gate added for the server's -log-level flag, rather than
// pulling in a structured logging library.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps the -log-level flag's accepted values
// (debug|info|warn|error) to a Level, defaulting to LevelInfo for
// anything else.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger gates log.Logger output by Level.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger writing to os.Stderr with the standard
// date/time prefix, gated at level.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) logf(level Level, prefix, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf(prefix+" "+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, "ERROR", format, args...) }

// Fatalf logs at error level then exits the process.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.out.Fatalf(fmt.Sprintf("FATAL %s", format), args...)
}
