package core

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

// ReservedAttrs is the fixed vocabulary of built-in record attribute
// names. Template placeholders address built-ins by these names, and
// extras whose keys collide with them are never merged into output.
var ReservedAttrs = []string{
	"args", "asctime", "created", "exc_info", "exc_text", "filename",
	"funcName", "levelname", "levelno", "lineno", "module",
	"msecs", "message", "msg", "name", "pathname", "process",
	"processName", "relativeCreated", "stack_info", "thread", "threadName",
}

var (
	pid       = os.Getpid()
	procName  = filepath.Base(os.Args[0])
	startTime = time.Now()
)

// Record represents one log event with all its metadata.
//
// Msg holds the raw message: a format string interpolated with Args, or
// a map[string]any payload whose keys become top-level output fields.
// Extra carries caller-supplied attributes outside the built-in set.
type Record struct {
	Name    string
	Level   Level
	Created time.Time
	Msg     any
	Args    []any

	PathName string
	FileName string
	Module   string
	LineNo   int
	FuncName string

	Process     int
	ProcessName string
	Thread      uint64
	ThreadName  string

	Err     error
	ExcText string
	Stack   string

	Extra Extra
}

// CallerInfo contains information about the caller
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Defined   bool
}

// recordPool is a pool of Record objects to reduce allocations
var recordPool = sync.Pool{
	New: func() interface{} {
		return &Record{
			Extra: make(Extra, 8), // Pre-size for typical extra counts
		}
	},
}

// GetRecord retrieves a Record from the pool, stamped with the current
// time and the cached process identity.
func GetRecord() *Record {
	r := recordPool.Get().(*Record)
	r.Created = time.Now()
	r.Process = pid
	r.ProcessName = procName
	return r
}

// GetRecordCoarse is GetRecord with the creation time read from the
// coarse clock instead of time.Now. StartCoarseClock must have been
// called first.
func GetRecordCoarse() *Record {
	r := recordPool.Get().(*Record)
	r.Created = CoarseNow()
	r.Process = pid
	r.ProcessName = procName
	return r
}

// Clone returns a pooled copy of the record that shares no mutable
// state with the original, so the two can be recycled independently.
func (r *Record) Clone() *Record {
	c := recordPool.Get().(*Record)
	extra := c.Extra
	*c = *r
	c.Args = slices.Clone(r.Args)
	if extra == nil {
		extra = make(Extra, len(r.Extra))
	}
	maps.Copy(extra, r.Extra)
	c.Extra = extra
	return c
}

// PutRecord returns a Record to the pool
func PutRecord(r *Record) {
	if r == nil {
		return
	}
	r.Name = ""
	r.Level = DebugLevel
	r.Created = time.Time{}
	r.Msg = nil
	r.Args = nil
	r.PathName = ""
	r.FileName = ""
	r.Module = ""
	r.LineNo = 0
	r.FuncName = ""
	r.Process = 0
	r.ProcessName = ""
	r.Thread = 0
	r.ThreadName = ""
	r.Err = nil
	r.ExcText = ""
	r.Stack = ""
	clear(r.Extra)
	recordPool.Put(r)
}

// GetMessage returns the formatted message: the raw message interpolated
// with Args when it is a format string, or its plain string rendering
// otherwise. Map payloads are not interpolated; formatters treat them as
// structured message fields instead.
func (r *Record) GetMessage() string {
	switch m := r.Msg.(type) {
	case string:
		if len(r.Args) == 0 {
			return m
		}
		return fmt.Sprintf(m, r.Args...)
	case nil:
		return ""
	default:
		return fmt.Sprint(m)
	}
}

// Payload returns the structured message fields when the raw message is
// a map payload, or nil when it is an ordinary message.
func (r *Record) Payload() map[string]any {
	switch m := r.Msg.(type) {
	case Extra:
		return m
	case map[string]any:
		return m
	default:
		return nil
	}
}

// SetCaller fills the source-location attributes from caller info.
func (r *Record) SetCaller(ci CallerInfo) {
	if !ci.Defined {
		return
	}
	r.PathName = ci.File
	r.FileName = ci.ShortFile
	r.Module = strings.TrimSuffix(ci.ShortFile, ".go")
	r.LineNo = ci.Line
	r.FuncName = ci.Function
}

// Attr resolves a built-in attribute by its reserved name, falling back
// to the extras bag for non-reserved names. Reserved names always
// resolve (possibly to nil); "message" and "asctime" are derived during
// formatting and resolve to nil here. Optional attributes that were
// never populated resolve to nil rather than zero values.
func (r *Record) Attr(name string) (any, bool) {
	switch name {
	case "name":
		return r.Name, true
	case "levelname":
		return r.Level.String(), true
	case "levelno":
		return r.Level.Num(), true
	case "created":
		return float64(r.Created.UnixNano()) / float64(time.Second), true
	case "msecs":
		return float64(r.Created.Nanosecond()) / float64(time.Millisecond), true
	case "relativeCreated":
		return float64(r.Created.Sub(startTime)) / float64(time.Millisecond), true
	case "msg":
		return r.Msg, true
	case "args":
		if len(r.Args) == 0 {
			return nil, true
		}
		return r.Args, true
	case "pathname":
		return nilIfEmpty(r.PathName), true
	case "filename":
		return nilIfEmpty(r.FileName), true
	case "module":
		return nilIfEmpty(r.Module), true
	case "lineno":
		if r.LineNo == 0 {
			return nil, true
		}
		return r.LineNo, true
	case "funcName":
		return nilIfEmpty(r.FuncName), true
	case "process":
		if r.Process == 0 {
			return nil, true
		}
		return r.Process, true
	case "processName":
		return nilIfEmpty(r.ProcessName), true
	case "thread":
		if r.Thread == 0 {
			return nil, true
		}
		return r.Thread, true
	case "threadName":
		return nilIfEmpty(r.ThreadName), true
	case "exc_info":
		if r.Err == nil {
			return nil, true
		}
		return r.Err, true
	case "exc_text":
		return nilIfEmpty(r.ExcText), true
	case "stack_info":
		return nilIfEmpty(r.Stack), true
	case "message", "asctime":
		return nil, true
	}
	v, ok := r.Extra[name]
	return v, ok
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:      file,
		ShortFile: filepath.Base(file),
		Line:      line,
		Function:  funcName,
		Defined:   true,
	}
}
