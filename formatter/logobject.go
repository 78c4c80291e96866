package formatter

import (
	"bytes"
	"encoding/json"
)

// LogObject accumulates output fields in insertion order. Setting a key
// that is already present overwrites its value in place, keeping the
// position of the first insertion, so merge steps can override earlier
// values without reshuffling the output.
type LogObject struct {
	keys   []string
	values map[string]any
}

// NewLogObject creates an empty LogObject.
func NewLogObject() *LogObject {
	return &LogObject{
		keys:   make([]string, 0, 8),
		values: make(map[string]any, 8),
	}
}

// Set stores a value under key, appending the key on first insertion.
func (o *LogObject) Set(key string, value any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *LogObject) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key and its value, preserving the order of the rest.
func (o *LogObject) Delete(key string) {
	if _, exists := o.values[key]; !exists {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields.
func (o *LogObject) Len() int {
	return len(o.keys)
}

// Keys returns the field names in insertion order. The returned slice
// is shared with the object and must not be modified.
func (o *LogObject) Keys() []string {
	return o.keys
}

// Range calls fn for each field in insertion order until fn returns false.
func (o *LogObject) Range(fn func(key string, value any) bool) {
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// MarshalJSON encodes the object as a JSON object with fields in
// insertion order.
func (o *LogObject) MarshalJSON() ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		appendJSONString(buf, k)
		buf.WriteString(`":`)
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// appendJSONString writes a JSON-escaped string (without surrounding quotes) to the buffer
func appendJSONString(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		// Flush unescaped prefix
		if start < i {
			buf.WriteString(s[start:i])
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexChars[c>>4])
			buf.WriteByte(hexChars[c&0x0f])
		}
		start = i + 1
	}
	// Flush remaining
	if start < len(s) {
		buf.WriteString(s[start:])
	}
}

var hexChars = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}
