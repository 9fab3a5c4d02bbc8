// Package logger provides a small structured logging interface backed by logrus.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	callerSkipFrames = 2 // getCaller -> logging method -> actual caller
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }
func Error(err error) Field                 { return Field{Key: "error", Value: err} }

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Named(name string) Logger {
	if prev, ok := l.entry.Data["logger"].(string); ok && prev != "" {
		name = prev + "." + name
	}
	return &logrusLogger{entry: l.entry.WithField("logger", name)}
}

func (l *logrusLogger) log(ctx context.Context, level logrus.Level, msg string, fields []Field) {
	e := l.entry.WithContext(ctx).WithFields(toLogrus(fields)).WithField("source", getCaller())
	e.Log(level, msg)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, logrus.InfoLevel, msg, fields)
}

func (l *logrusLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, logrus.ErrorLevel, msg, fields)
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, logrus.DebugLevel, msg, fields)
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, logrus.WarnLevel, msg, fields)
}

func (l *logrusLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, logrus.ErrorLevel, msg, fields)
	os.Exit(1)
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[f.Key] = err.Error()
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}

var (
	global Logger
	base   = logrus.New()
)

// Init initializes the global logger at info level on stdout.
func Init() error {
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})
	global = &logrusLogger{entry: logrus.NewEntry(base)}
	return nil
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) { base.SetOutput(w) }

// getCaller returns the caller location as relative/path/file.go:line.
func getCaller() string {
	_, file, line, ok := runtime.Caller(callerSkipFrames + 1)
	if !ok {
		return "unknown:0"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	relPath, err := filepath.Rel(cwd, file)
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

// Get returns the global logger.
func Get() Logger {
	if global == nil {
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	// logrus writes synchronously
	return nil
}

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "", "info":
		base.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
