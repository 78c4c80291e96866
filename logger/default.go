package logger

import (
	"sync"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/handler"
)

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

func init() {
	// Initialize default logger with console handler
	h := handler.NewConsoleHandler(handler.ConsoleConfig{
		Async:      true,
		BufferSize: 1000,
	})

	defaultLogger = NewBuilder().
		WithHandler(h).
		WithLevel(core.InfoLevel).
		Build()
}

// Default returns the default logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(msg string, extras ...core.Extra) {
	Default().Debug(msg, extras...)
}

// Info logs an info message using the default logger
func Info(msg string, extras ...core.Extra) {
	Default().Info(msg, extras...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, extras ...core.Extra) {
	Default().Warn(msg, extras...)
}

// Error logs an error message using the default logger
func Error(msg string, extras ...core.Extra) {
	Default().Error(msg, extras...)
}

// Fatal logs a fatal message using the default logger and exits the program
func Fatal(msg string, extras ...core.Extra) {
	Default().Fatal(msg, extras...)
}

// Panic logs a panic message using the default logger and panics
func Panic(msg string, extras ...core.Extra) {
	Default().Panic(msg, extras...)
}

// Debugf logs a formatted debug message using the default logger
func Debugf(format string, args ...any) {
	Default().Debugf(format, args...)
}

// Infof logs a formatted info message using the default logger
func Infof(format string, args ...any) {
	Default().Infof(format, args...)
}

// Warnf logs a formatted warning message using the default logger
func Warnf(format string, args ...any) {
	Default().Warnf(format, args...)
}

// Errorf logs a formatted error message using the default logger
func Errorf(format string, args ...any) {
	Default().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message using the default logger and exits the program
func Fatalf(format string, args ...any) {
	Default().Fatalf(format, args...)
}

// Panicf logs a formatted panic message using the default logger and panics
func Panicf(format string, args ...any) {
	Default().Panicf(format, args...)
}

// Exception logs an error with its exception attribute set using the
// default logger
func Exception(msg string, err error, extras ...core.Extra) {
	Default().Exception(msg, err, extras...)
}

// Payload logs a structured mapping as the message using the default logger
func Payload(level core.Level, payload map[string]any, extras ...core.Extra) {
	Default().Payload(level, payload, extras...)
}

// With creates a new logger with additional default extras
func With(extras ...core.Extra) *Logger {
	return Default().With(extras...)
}
