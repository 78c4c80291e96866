package handler

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/Agnonimoose/jogger/core"
)

// SlogHandler adapts a jogger Handler to the slog.Handler interface, so
// jogger handlers can serve as a drop-in backend for log/slog. Group
// names become dotted key prefixes on the record's extras.
type SlogHandler struct {
	handler Handler
	level   core.Level
	attrs   []slogField
	group   string
	recycle bool
}

// slogField is a pre-resolved attribute captured by WithAttrs.
type slogField struct {
	key   string
	value any
}

// NewSlogHandler creates a new slog.Handler adapter wrapping the given Handler.
func NewSlogHandler(h Handler, level core.Level) *SlogHandler {
	return &SlogHandler{
		handler: h,
		level:   level,
		recycle: CanRecycle(h),
	}
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return slogLevelToCore(level) >= s.level
}

// Handle converts a slog.Record to a core.Record and passes it to the
// wrapped handler.
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	rec := core.GetRecord()
	if !record.Time.IsZero() {
		rec.Created = record.Time
	}
	rec.Level = slogLevelToCore(record.Level)
	rec.Msg = record.Message
	rec.SetCaller(pcCaller(record.PC))

	for _, f := range s.attrs {
		rec.Extra[f.key] = f.value
	}
	record.Attrs(func(a slog.Attr) bool {
		flattenAttr(s.group, a, func(key string, value any) {
			rec.Extra[key] = value
		})
		return true
	})

	err := s.handler.Handle(rec)
	if s.recycle {
		core.PutRecord(rec)
	}
	return err
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	newAttrs := make([]slogField, len(s.attrs), len(s.attrs)+len(attrs))
	copy(newAttrs, s.attrs)
	for _, a := range attrs {
		flattenAttr(s.group, a, func(key string, value any) {
			newAttrs = append(newAttrs, slogField{key: key, value: value})
		})
	}
	return &SlogHandler{
		handler: s.handler,
		level:   s.level,
		attrs:   newAttrs,
		group:   s.group,
		recycle: s.recycle,
	}
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return &SlogHandler{
		handler: s.handler,
		level:   s.level,
		attrs:   s.attrs,
		group:   joinKey(s.group, name),
		recycle: s.recycle,
	}
}

// flattenAttr resolves an attribute and emits it as one or more dotted
// key/value pairs. Groups flatten recursively: every member is emitted
// under the group's prefix, empty groups are elided, and an inline
// group (empty key) flattens into its parent prefix.
func flattenAttr(group string, a slog.Attr, emit func(key string, value any)) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		prefix := group
		if a.Key != "" {
			prefix = joinKey(group, a.Key)
		}
		for _, ga := range attrs {
			flattenAttr(prefix, ga, emit)
		}
		return
	}

	if a.Key == "" {
		return
	}
	emit(joinKey(group, a.Key), a.Value.Any())
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// pcCaller resolves a slog.Record program counter to caller info.
func pcCaller(pc uintptr) core.CallerInfo {
	if pc == 0 {
		return core.CallerInfo{}
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return core.CallerInfo{}
	}
	return core.CallerInfo{
		File:      f.File,
		ShortFile: filepath.Base(f.File),
		Line:      f.Line,
		Function:  f.Function,
		Defined:   true,
	}
}

// slogLevelToCore converts a slog.Level to a core.Level.
func slogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	default:
		return core.DebugLevel
	}
}
