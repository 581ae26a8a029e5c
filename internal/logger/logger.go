// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a slog.Logger so that packages can pass it around without depending on a
// specific handler.
type Logger struct {
	*slog.Logger
}

// New returns a text logger writing to stderr with the given minimum level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a text logger writing to output with the given minimum level.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return NewWithFormat(level, "text", output)
}

// NewWithFormat returns a logger for the given handler format. Supported formats are
// "text" and "json", anything else falls back to text.
func NewWithFormat(level slog.Level, format string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	return &Logger{slog.New(handler)}
}

// Component returns a child logger that tags every record with the given component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With(slog.String("component", name))}
}

// Err returns the error as a log attribute.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
