// Package logging provides the structured logger used across edge.
//
// Loggers wrap a log/slog handler and carry a component name plus a fixed
// set of fields. Field lists are alternating key/value pairs, as with slog.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
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

// ParseLevel parses a level name as written in configuration files.
func ParseLevel(s string) (LogLevel, error) {
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

func (l LogLevel) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// EdgeLogger is the slog backed Logger.
type EdgeLogger struct {
	handler   slog.Handler
	level     LogLevel
	component string
	attrs     []slog.Attr
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns default logger configuration. Logs go to stderr so
// that rendered output on stdout stays clean.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *EdgeLogger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slog(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &EdgeLogger{
		handler:   handler,
		level:     config.Level,
		component: config.Component,
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewLogger(&LoggerConfig{Level: LevelError + 1, Output: io.Discard})
}

// Debug logs a debug message
func (l *EdgeLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelDebug, nil, msg, fields)
}

// Info logs an info message
func (l *EdgeLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelInfo, nil, msg, fields)
}

// Warn logs a warning message
func (l *EdgeLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelWarn, err, msg, fields)
}

// Error logs an error message
func (l *EdgeLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelError, err, msg, fields)
}

// With creates a new logger with additional fields
func (l *EdgeLogger) With(fields ...interface{}) Logger {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)/2)
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, toAttrs(fields)...)
	return &EdgeLogger{
		handler:   l.handler,
		level:     l.level,
		component: l.component,
		attrs:     attrs,
	}
}

// WithComponent creates a new logger with component context
func (l *EdgeLogger) WithComponent(component string) Logger {
	return &EdgeLogger{
		handler:   l.handler,
		level:     l.level,
		component: component,
		attrs:     l.attrs,
	}
}

func (l *EdgeLogger) log(ctx context.Context, level LogLevel, err error, msg string, fields []interface{}) {
	if level < l.level {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)/2+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, toAttrs(fields)...)

	record := slog.NewRecord(time.Now(), level.slog(), msg, 0)
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)
}

// toAttrs converts key/value pairs; a dangling key or a non-string key is
// dropped.
func toAttrs(fields []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}
	return attrs
}

// FileLogger writes to a dated file under a log directory.
type FileLogger struct {
	*EdgeLogger
	file     *os.File
	filePath string
}

// NewFileLogger creates a file-based logger with one file per day
func NewFileLogger(config *LoggerConfig, logDir string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileName := fmt.Sprintf("edge-%s.log", time.Now().Format("2006-01-02"))
	filePath := filepath.Join(logDir, fileName)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if config == nil {
		config = DefaultConfig()
	}
	fileConfig := *config
	fileConfig.Output = file

	return &FileLogger{
		EdgeLogger: NewLogger(&fileConfig),
		file:       file,
		filePath:   filePath,
	}, nil
}

// Path returns the file being written.
func (f *FileLogger) Path() string {
	return f.filePath
}

// Close closes the file logger
func (f *FileLogger) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// MultiLogger writes to multiple loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Debug logs to all loggers
func (m *MultiLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	for _, logger := range m.loggers {
		logger.Debug(ctx, msg, fields...)
	}
}

// Info logs to all loggers
func (m *MultiLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	for _, logger := range m.loggers {
		logger.Info(ctx, msg, fields...)
	}
}

// Warn logs to all loggers
func (m *MultiLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, logger := range m.loggers {
		logger.Warn(ctx, err, msg, fields...)
	}
}

// Error logs to all loggers
func (m *MultiLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, logger := range m.loggers {
		logger.Error(ctx, err, msg, fields...)
	}
}

// With creates a new multi-logger with additional fields
func (m *MultiLogger) With(fields ...interface{}) Logger {
	loggers := make([]Logger, len(m.loggers))
	for i, logger := range m.loggers {
		loggers[i] = logger.With(fields...)
	}
	return &MultiLogger{loggers: loggers}
}

// WithComponent creates a new multi-logger with component context
func (m *MultiLogger) WithComponent(component string) Logger {
	loggers := make([]Logger, len(m.loggers))
	for i, logger := range m.loggers {
		loggers[i] = logger.WithComponent(component)
	}
	return &MultiLogger{loggers: loggers}
}

// WithRequestID tags every entry of logger with a request id.
func WithRequestID(logger Logger, requestID string) Logger {
	return logger.With("request_id", requestID)
}

// PerfLogger times an operation.
type PerfLogger struct {
	Logger
	startTime time.Time
	operation string
}

// StartOperation begins performance tracking
func StartOperation(logger Logger, operation string, fields ...interface{}) *PerfLogger {
	return &PerfLogger{
		Logger:    logger.With(append([]interface{}{"operation", operation}, fields...)...),
		startTime: time.Now(),
		operation: operation,
	}
}

// End logs the duration at debug level.
func (p *PerfLogger) End(ctx context.Context) time.Duration {
	d := time.Since(p.startTime)
	p.Debug(ctx, p.operation+" completed", "duration", d.String())
	return d
}

// EndWithError logs the duration and err at error level.
func (p *PerfLogger) EndWithError(ctx context.Context, err error) time.Duration {
	d := time.Since(p.startTime)
	p.Error(ctx, err, p.operation+" failed", "duration", d.String())
	return d
}
