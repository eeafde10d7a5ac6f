package orm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// LogLevelDebug for detailed diagnostic information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo for general informational messages
	LogLevelInfo
	// LogLevelWarn for warning messages
	LogLevelWarn
	// LogLevelError for error messages
	LogLevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel accepts debug, info, warn/warning and error in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the structured logging interface used across the module.
// Any logging library can sit behind it, LogrusLogger is the default.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With creates a new logger with the given fields pre-populated
	With(fields ...Field) Logger

	SetLevel(level LogLevel)
}

// Field represents a structured logging field (key-value pair)
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand constructor for Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func String(key, value string) Field             { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Int64(key string, value int64) Field        { return Field{key, value} }
func Float64(key string, value float64) Field    { return Field{key, value} }
func Bool(key string, value bool) Field          { return Field{key, value} }
func Error(err error) Field                      { return Field{logrus.ErrorKey, err} }
func Duration(key string, d time.Duration) Field { return Field{key, d.String()} }
func Any(key string, value interface{}) Field    { return Field{key, value} }

// LogrusLogger adapts a logrus entry to Logger
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds a logrus-backed logger writing to out (stderr when nil),
// using the JSON formatter when json is set and the text formatter otherwise.
func NewLogrusLogger(out io.Writer, minLevel LogLevel, json bool) *LogrusLogger {
	if out == nil {
		out = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(minLevel.logrusLevel())
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusLoggerFrom wraps an already configured logrus logger
func NewLogrusLoggerFrom(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *LogrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func (l *LogrusLogger) With(fields ...Field) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toLogrusFields(fields))}
}

// SetLevel changes the level of the underlying logrus logger, which is shared
// with every logger derived through With.
func (l *LogrusLogger) SetLevel(level LogLevel) {
	l.entry.Logger.SetLevel(level.logrusLevel())
}

// NoopLogger is a logger that doesn't log anything
type NoopLogger struct{}

// NewNoopLogger creates a logger that doesn't log anything (useful for testing)
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}
func (n *NoopLogger) With(fields ...Field) Logger       { return n }
func (n *NoopLogger) SetLevel(level LogLevel)           {}

// Global default logger - can be replaced by applications
var defaultLogger Logger = NewNoopLogger()

// SetDefaultLogger sets the global default logger. Nil resets it to a NoopLogger.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = NewNoopLogger()
	}
	defaultLogger = logger
}

// GetDefaultLogger returns the current default logger
func GetDefaultLogger() Logger {
	return defaultLogger
}

func Debug(msg string, fields ...Field) {
	defaultLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	defaultLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	defaultLogger.Warn(msg, fields...)
}

func LogError(msg string, fields ...Field) {
	defaultLogger.Error(msg, fields...)
}
