package logger

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/formatter"
	"github.com/Agnonimoose/jogger/handler"
)

// osExit is a variable to allow overriding os.Exit in tests
var osExit = os.Exit

// Logger is the main logging interface (immutable)
type Logger struct {
	name          string
	handler       handler.Handler
	level         core.Level
	extra         core.Extra
	includeCaller bool
	callerSkip    int
	stackEnabled  bool
	stackMin      core.Level
	coarseClock   bool
	recycle       bool
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	name          string
	handler       handler.Handler
	level         core.Level
	extra         core.Extra
	includeCaller bool
	stackEnabled  bool
	stackMin      core.Level
	coarseClock   bool
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level: core.InfoLevel, // Default level
	}
}

// WithName sets the logger name emitted as the record's name attribute.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithExtra adds default extras attached to every record
func (b *Builder) WithExtra(extra core.Extra) *Builder {
	b.extra = b.extra.Merge(extra)
	return b
}

// WithCaller enables caller information
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.includeCaller = enabled
	return b
}

// WithStack captures the goroutine stack on records at or above min.
func (b *Builder) WithStack(min core.Level) *Builder {
	b.stackEnabled = true
	b.stackMin = min
	return b
}

// WithCoarseClock stamps records from the cached coarse clock instead
// of time.Now. Trades sub-millisecond timestamp precision for a cheaper
// hot path.
func (b *Builder) WithCoarseClock() *Builder {
	b.coarseClock = true
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	if b.coarseClock {
		core.StartCoarseClock()
	}
	return &Logger{
		name:          b.name,
		handler:       b.handler,
		level:         b.level,
		extra:         b.extra,
		includeCaller: b.includeCaller,
		callerSkip:    3, // user code -> leveled method -> log -> GetCaller
		stackEnabled:  b.stackEnabled,
		stackMin:      b.stackMin,
		coarseClock:   b.coarseClock,
		recycle:       b.handler != nil && handler.CanRecycle(b.handler),
	}
}

// clone copies the logger so derived instances never mutate the parent.
func (l *Logger) clone() *Logger {
	c := *l
	return &c
}

// With creates a new Logger with additional default extras (immutable
// operation).
func (l *Logger) With(extras ...core.Extra) *Logger {
	c := l.clone()
	merged := l.extra
	for _, e := range extras {
		merged = merged.Merge(e)
	}
	c.extra = merged
	return c
}

// Named creates a new Logger whose name extends this logger's name with
// a dot-joined segment.
func (l *Logger) Named(name string) *Logger {
	if name == "" {
		return l
	}
	c := l.clone()
	if l.name == "" {
		c.name = name
	} else {
		c.name = l.name + "." + name
	}
	return c
}

// Log logs a message at the specified level
func (l *Logger) Log(level core.Level, msg string, extras ...core.Extra) {
	// Level check optimization - exit early BEFORE any allocations
	if level < l.level {
		return
	}
	l.log(level, msg, nil, nil, extras)
}

// Payload logs a structured mapping as the message. Formatters merge
// the mapping's keys into the output as top-level fields.
func (l *Logger) Payload(level core.Level, payload map[string]any, extras ...core.Extra) {
	if level < l.level {
		return
	}
	l.log(level, payload, nil, nil, extras)
}

// Exception logs an error message with the error attached as the
// record's exception attribute.
func (l *Logger) Exception(msg string, err error, extras ...core.Extra) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, msg, nil, err, extras)
}

// log builds a record and hands it to the handler. Interpolation args
// are stored on the record, so format strings are rendered by the
// formatter, not here.
func (l *Logger) log(level core.Level, msg any, args []any, err error, extras []core.Extra) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}

	var rec *core.Record
	if l.coarseClock {
		rec = core.GetRecordCoarse()
	} else {
		rec = core.GetRecord()
	}
	rec.Name = l.name
	rec.Level = level
	rec.Msg = msg
	rec.Args = args
	rec.Err = err

	for k, v := range l.extra {
		rec.Extra[k] = v
	}
	for _, e := range extras {
		for k, v := range e {
			rec.Extra[k] = v
		}
	}

	if l.includeCaller {
		rec.SetCaller(core.GetCaller(l.callerSkip))
	}
	if l.stackEnabled && level >= l.stackMin {
		rec.Stack = formatter.FormatStack(debug.Stack())
	}

	if l.handler.Handle(rec) != nil {
		return
	}

	// Return record to pool if handler supports it
	if l.recycle {
		core.PutRecord(rec)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, extras ...core.Extra) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, msg, nil, nil, extras)
}

// Info logs an info message
func (l *Logger) Info(msg string, extras ...core.Extra) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, msg, nil, nil, extras)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, extras ...core.Extra) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, msg, nil, nil, extras)
}

// Error logs an error message
func (l *Logger) Error(msg string, extras ...core.Extra) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, msg, nil, nil, extras)
}

// Fatal logs a fatal message, drains the handler, and exits the
// program with os.Exit(1)
func (l *Logger) Fatal(msg string, extras ...core.Extra) {
	l.log(core.FatalLevel, msg, nil, nil, extras)
	l.Close()
	osExit(1)
}

// Panic logs a panic message and panics
func (l *Logger) Panic(msg string, extras ...core.Extra) {
	l.log(core.PanicLevel, msg, nil, nil, extras)
	panic(msg)
}

// Debugf logs a debug message with deferred interpolation
func (l *Logger) Debugf(format string, args ...any) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, format, args, nil, nil)
}

// Infof logs an info message with deferred interpolation
func (l *Logger) Infof(format string, args ...any) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, format, args, nil, nil)
}

// Warnf logs a warning message with deferred interpolation
func (l *Logger) Warnf(format string, args ...any) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, format, args, nil, nil)
}

// Errorf logs an error message with deferred interpolation
func (l *Logger) Errorf(format string, args ...any) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, format, args, nil, nil)
}

// Fatalf logs a fatal message with deferred interpolation, drains the
// handler, and exits the program with os.Exit(1)
func (l *Logger) Fatalf(format string, args ...any) {
	l.log(core.FatalLevel, format, args, nil, nil)
	l.Close()
	osExit(1)
}

// Panicf logs a panic message and panics with the interpolated message
func (l *Logger) Panicf(format string, args ...any) {
	l.log(core.PanicLevel, format, args, nil, nil)
	panic(fmt.Sprintf(format, args...))
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}
