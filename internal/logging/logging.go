// Package logging builds the component loggers used by the CLI and daemon.
//
// Components take a plain *log.Logger with a "[component] " prefix. The level
// decides which of those loggers write anywhere; a logger below the level
// discards its output.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Options configures Open.
type Options struct {
	Level string
	// File, when set, receives output through a size-rotated writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Fallback receives output when File is empty. Nil means stderr.
	Fallback io.Writer
}

// Logs hands out component loggers over one destination.
type Logs struct {
	out    io.Writer
	level  Level
	closer io.Closer
}

// Open resolves the destination and level.
func Open(opts Options) (*Logs, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logs{level: level, out: opts.Fallback}
	if l.out == nil {
		l.out = os.Stderr
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		l.out = rotator
		l.closer = rotator
	}
	return l, nil
}

// Discard returns Logs that write nothing.
func Discard() *Logs {
	return &Logs{out: io.Discard, level: LevelError + 1}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Level returns the configured level.
func (l *Logs) Level() Level {
	return l.level
}

// Writer returns the underlying destination.
func (l *Logs) Writer() io.Writer {
	return l.out
}

// At returns a logger for component that writes only when level is enabled.
func (l *Logs) At(level Level, component string) *log.Logger {
	if level < l.level {
		return log.New(io.Discard, "", 0)
	}
	return log.New(l.out, "["+component+"] ", log.LstdFlags)
}

// For returns the info-level logger for component.
func (l *Logs) For(component string) *log.Logger {
	return l.At(LevelInfo, component)
}

// Debug returns the debug-level logger for component.
func (l *Logs) Debug(component string) *log.Logger {
	return l.At(LevelDebug, component)
}

// Close releases the log file, if any.
func (l *Logs) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
