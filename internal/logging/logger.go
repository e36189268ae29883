// Package logging adapts logrus to the key/value Logger contract used by the
// core service, with optional size-based file rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name (debug, info, warn, error). Defaults to info.
	Level string
	// File, when set, sends output to a rotating log file instead of Output.
	File string
	// Output is used when File is empty. Defaults to os.Stderr.
	Output io.Writer
	// JSON selects the JSON formatter.
	JSON bool
	// Component is attached to every entry.
	Component string
}

// Logger implements Debug/Info/Warn/Error(msg, key, value, ...) on a logrus entry.
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	base := logrus.New()
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	base.SetLevel(level)
	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	l := &Logger{}
	switch {
	case opts.File != "":
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		base.SetOutput(rotator)
		l.closer = rotator
	case opts.Output != nil:
		base.SetOutput(opts.Output)
	default:
		base.SetOutput(os.Stderr)
	}
	entry := logrus.NewEntry(base)
	if opts.Component != "" {
		entry = entry.WithField("component", opts.Component)
	}
	l.entry = entry
	return l, nil
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.with(args).Info(msg) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.with(args).Warn(msg) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.with(args).Error(msg) }

// Close flushes and closes the rotating file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// with turns alternating key/value args into logrus fields. A dangling key
// is recorded under "!BADKEY", matching log/slog.
func (l *Logger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok || strings.TrimSpace(key) == "" {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return l.entry.WithFields(fields)
}
