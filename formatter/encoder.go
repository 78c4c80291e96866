package formatter

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Agnonimoose/jogger/core"
)

// Converter turns one value that encoding/json cannot serialize
// faithfully into a replacement. The returned value is normalized again,
// so a converter may return maps, slices, or other convertible values.
// Returning an error aborts formatting of the whole record.
type Converter func(v any) (any, error)

// DefaultConverter is the conversion chain installed when no custom
// Converter is configured. It tries, in order: timestamps to RFC 3339
// text, stack traces to rendered frame text, errors to their message,
// standard JSON serialization, a printed rendering, and finally null.
// It never fails; values nothing in the chain can handle become nil.
func DefaultConverter(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return val.Format(time.RFC3339Nano), nil
	case errors.StackTrace:
		return renderStackTrace(val), nil
	case []runtime.Frame:
		return renderFrames(val), nil
	case []uintptr:
		return renderPCs(val), nil
	case error:
		return val.Error(), nil
	}
	if b, err := safeMarshal(v); err == nil {
		return json.RawMessage(b), nil
	}
	if s, ok := safeSprint(v); ok {
		return s, nil
	}
	return nil, nil
}

// EncodeValue normalizes v into a value encoding/json serializes
// faithfully: primitives pass through, maps and slices are walked, and
// every other value is replaced through conv. A nil conv selects
// DefaultConverter.
func EncodeValue(v any, conv Converter) (any, error) {
	if conv == nil {
		conv = DefaultConverter
	}
	return encodeValue(v, conv, 0)
}

// maxEncodeDepth bounds recursion through nested containers and through
// converters that keep returning values they cannot settle.
const maxEncodeDepth = 64

func encodeValue(v any, conv Converter, depth int) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		json.Number, json.RawMessage, []byte:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64), nil
		}
		return val, nil
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 32), nil
		}
		return val, nil
	case time.Time, *time.Time, errors.StackTrace, []runtime.Frame, []uintptr, error:
		return convert(v, conv, depth)
	case map[string]any:
		return encodeStringMap(val, conv, depth)
	case core.Extra:
		return encodeStringMap(val, conv, depth)
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			ev, err := encodeValue(x, conv, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := encodeValue(iter.Value().Interface(), conv, depth+1)
			if err != nil {
				return nil, err
			}
			out[mapKeyString(iter.Key())] = ev
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := encodeValue(rv.Index(i).Interface(), conv, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}

	return convert(v, conv, depth)
}

// convert replaces a leaf value through conv and normalizes the result.
// Past the depth bound the value degrades to its printed rendering.
func convert(v any, conv Converter, depth int) (out any, err error) {
	if depth >= maxEncodeDepth {
		s, _ := safeSprint(v)
		return s, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.Errorf("value converter panicked: %v", r)
		}
	}()
	converted, err := conv(v)
	if err != nil {
		return nil, err
	}
	return encodeValue(converted, conv, depth+1)
}

func encodeStringMap(m map[string]any, conv Converter, depth int) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, x := range m {
		ev, err := encodeValue(x, conv, depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}

func mapKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func renderStackTrace(st errors.StackTrace) string {
	return strings.TrimSpace(fmt.Sprintf("%+v", st))
}

func renderFrames(frames []runtime.Frame) string {
	var b strings.Builder
	for i, fr := range frames {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fr.Function)
		b.WriteString("\n\t")
		b.WriteString(fr.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(fr.Line))
	}
	return b.String()
}

func renderPCs(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs)
	var b strings.Builder
	first := true
	for {
		fr, more := frames.Next()
		if fr.Function != "" || fr.File != "" {
			if !first {
				b.WriteByte('\n')
			}
			b.WriteString(fr.Function)
			b.WriteString("\n\t")
			b.WriteString(fr.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(fr.Line))
			first = false
		}
		if !more {
			break
		}
	}
	return b.String()
}

// safeMarshal marshals v, turning panics from misbehaving MarshalJSON
// implementations into errors.
func safeMarshal(v any) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, errors.Errorf("marshal panicked: %v", r)
		}
	}()
	return json.Marshal(v)
}

func safeSprint(v any) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s, ok = "", false
		}
	}()
	return fmt.Sprint(v), true
}
