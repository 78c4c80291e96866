package formatter

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/Agnonimoose/jogger/core"
)

// Serializer renders a finished LogObject to JSON bytes, replacing the
// built-in rendering. It receives field values as the record carried
// them and owns their conversion, unless a Converter is also configured,
// in which case values arrive already normalized. Indent,
// DisableHTMLEscape and EnsureASCII do not apply to its output.
type Serializer func(obj *LogObject) ([]byte, error)

// JSONConfig configures a JSONFormatter
type JSONConfig struct {
	Config

	// RenameFields maps template attribute names to the output keys
	// they are written under
	RenameFields map[string]string
	// StaticFields are constant fields added to every record
	StaticFields map[string]any
	// ReservedAttrs overrides the attribute names excluded from extras
	// merging (nil for core.ReservedAttrs)
	ReservedAttrs []string
	// Prefix is written verbatim before each JSON document
	Prefix string

	// Timestamp injects the record creation time, in UTC, as a final
	// "timestamp" field
	Timestamp bool
	// TimestampKey renames the injected field and implies Timestamp
	TimestampKey string

	// Converter replaces DefaultConverter for values encoding/json
	// cannot serialize faithfully
	Converter Converter
	// Serializer replaces the built-in JSON rendering
	Serializer Serializer
	// ProcessObject is called with the merged object before values are
	// normalized; a non-nil result replaces the object
	ProcessObject func(rec *core.Record, obj *LogObject) *LogObject

	// Indent pretty-prints with the given number of spaces per level
	Indent int
	// DisableHTMLEscape leaves <, > and & unescaped in string values
	DisableHTMLEscape bool
	// EnsureASCII escapes all non-ASCII characters as \uXXXX sequences
	EnsureASCII bool
}

// JSONFormatter formats log records as JSON documents, one per line. The
// output fields are merged in a fixed order: template attributes first,
// then static fields, message fields, extras, and the injected
// timestamp. A later step overwrites the value of an earlier one but
// keeps its position.
type JSONFormatter struct {
	cfg          JSONConfig
	fields       []string
	outKeys      []string
	skip         map[string]struct{}
	statics      []staticField
	needsAsctime bool
	timestampKey string
	converter    Converter
	indent       string
}

type staticField struct {
	key   string
	value any
}

// NewJSONFormatter creates a new JSON formatter. It fails when the
// configured Style is not a supported placeholder syntax.
func NewJSONFormatter(cfg JSONConfig) (*JSONFormatter, error) {
	fields, err := parseTemplate(cfg.Template, cfg.Style)
	if err != nil {
		return nil, err
	}

	reserved := cfg.ReservedAttrs
	if reserved == nil {
		reserved = core.ReservedAttrs
	}
	skip := make(map[string]struct{}, len(fields)+len(reserved))
	for _, name := range fields {
		skip[name] = struct{}{}
	}
	for _, name := range reserved {
		skip[name] = struct{}{}
	}

	outKeys := make([]string, len(fields))
	needsAsctime := false
	for i, name := range fields {
		outKeys[i] = name
		if renamed, ok := cfg.RenameFields[name]; ok {
			outKeys[i] = renamed
		}
		if name == "asctime" {
			needsAsctime = true
		}
	}

	statics := make([]staticField, 0, len(cfg.StaticFields))
	for k, v := range cfg.StaticFields {
		statics = append(statics, staticField{key: k, value: v})
	}
	sort.Slice(statics, func(i, j int) bool { return statics[i].key < statics[j].key })

	var timestampKey string
	if cfg.Timestamp || cfg.TimestampKey != "" {
		timestampKey = cfg.TimestampKey
		if timestampKey == "" {
			timestampKey = "timestamp"
		}
	}

	// The built-in conversion chain steps in only when the caller
	// supplied no hook at all; a custom Converter or Serializer fully
	// replaces it rather than chaining with it.
	conv := cfg.Converter
	if conv == nil && cfg.Serializer == nil {
		conv = DefaultConverter
	}

	var indent string
	if cfg.Indent > 0 {
		indent = strings.Repeat(" ", cfg.Indent)
	}

	return &JSONFormatter{
		cfg:          cfg,
		fields:       fields,
		outKeys:      outKeys,
		skip:         skip,
		statics:      statics,
		needsAsctime: needsAsctime,
		timestampKey: timestampKey,
		converter:    conv,
		indent:       indent,
	}, nil
}

// Fields returns the attribute names selected by the template, in order
// of first appearance.
func (f *JSONFormatter) Fields() []string {
	return f.fields
}

// Format formats a record as JSON
func (f *JSONFormatter) Format(rec *core.Record) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := f.formatToBuffer(rec, buf); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats a record as JSON and writes it directly to the writer
func (f *JSONFormatter) FormatTo(rec *core.Record, w io.Writer) error {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := f.formatToBuffer(rec, buf); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (f *JSONFormatter) formatToBuffer(rec *core.Record, buf *bytes.Buffer) error {
	obj := f.buildObject(rec)

	if hook := f.cfg.ProcessObject; hook != nil {
		if replaced := hook(rec, obj); replaced != nil {
			obj = replaced
		}
	}

	if f.converter != nil {
		if err := f.normalizeObject(obj); err != nil {
			return err
		}
	}

	buf.WriteString(f.cfg.Prefix)

	if f.cfg.Serializer != nil {
		b, err := f.cfg.Serializer(obj)
		if err != nil {
			return err
		}
		buf.Write(b)
		if len(b) == 0 || b[len(b)-1] != '\n' {
			buf.WriteByte('\n')
		}
		return nil
	}

	body := getBuffer()
	defer putBuffer(body)
	if err := f.writeObject(body, obj); err != nil {
		return err
	}

	out := body.Bytes()
	if f.indent != "" {
		pretty := getBuffer()
		defer putBuffer(pretty)
		if err := json.Indent(pretty, out, "", f.indent); err != nil {
			return err
		}
		out = pretty.Bytes()
	}

	if f.cfg.EnsureASCII {
		appendASCII(buf, out)
	} else {
		buf.Write(out)
	}
	buf.WriteByte('\n')
	return nil
}

// buildObject merges the record into an ordered field object. Template
// attributes come first under their renamed keys, followed by static
// fields, the message's own fields, extras, and the injected timestamp.
func (f *JSONFormatter) buildObject(rec *core.Record) *LogObject {
	var message any
	msgFields := f.messageFields(rec, &message)

	var asctime string
	if f.needsAsctime {
		asctime = FormatTime(rec.Created, f.cfg.TimestampFormat)
	}

	obj := NewLogObject()

	for i, name := range f.fields {
		var v any
		switch name {
		case "message":
			v = message
		case "asctime":
			v = asctime
		default:
			v, _ = rec.Attr(name)
		}
		obj.Set(f.outKeys[i], v)
	}

	for _, s := range f.statics {
		obj.Set(s.key, s.value)
	}

	msgKeys := make([]string, 0, len(msgFields))
	for k := range msgFields {
		msgKeys = append(msgKeys, k)
	}
	sort.Strings(msgKeys)
	for _, k := range msgKeys {
		obj.Set(k, msgFields[k])
	}

	extraKeys := make([]string, 0, len(rec.Extra))
	for k := range rec.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		if _, reserved := f.skip[k]; reserved {
			continue
		}
		if strings.HasPrefix(k, "_") {
			continue
		}
		obj.Set(k, rec.Extra[k])
	}

	if f.timestampKey != "" {
		obj.Set(f.timestampKey, rec.Created.UTC())
	}

	return obj
}

// messageFields returns the fields the message itself contributes: the
// payload of a structured message plus derived exception and stack text.
// message is set to the interpolated text, and stays nil for payload
// records. Derived exc_info and stack_info never overwrite a non-empty
// payload value.
func (f *JSONFormatter) messageFields(rec *core.Record, message *any) map[string]any {
	payload := rec.Payload()
	if payload == nil {
		*message = rec.GetMessage()
	}

	if payload == nil && rec.Err == nil && rec.ExcText == "" && rec.Stack == "" {
		return nil
	}

	fields := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		fields[k] = v
	}
	if rec.Err != nil && !truthy(fields["exc_info"]) {
		fields["exc_info"] = FormatException(rec.Err)
	}
	if !truthy(fields["exc_info"]) && rec.ExcText != "" {
		fields["exc_info"] = rec.ExcText
	}
	if rec.Stack != "" && !truthy(fields["stack_info"]) {
		fields["stack_info"] = rec.Stack
	}
	return fields
}

// truthy reports whether an override value suppresses the derived
// exc_info or stack_info text. Missing, nil, empty and false do not.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	}
	return true
}

// normalizeObject replaces every field value with its JSON-safe form.
func (f *JSONFormatter) normalizeObject(obj *LogObject) error {
	for _, k := range obj.keys {
		ev, err := encodeValue(obj.values[k], f.converter, 0)
		if err != nil {
			return err
		}
		obj.values[k] = ev
	}
	return nil
}

// writeObject renders the object as compact JSON with the configured
// escaping.
func (f *JSONFormatter) writeObject(buf *bytes.Buffer, obj *LogObject) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(!f.cfg.DisableHTMLEscape)

	buf.WriteByte('{')
	for i, k := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		appendJSONString(buf, k)
		buf.WriteString(`":`)
		if err := enc.Encode(obj.values[k]); err != nil {
			return err
		}
		// Encode appends a newline after every value
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return nil
}

// appendASCII copies src into buf, escaping each non-ASCII character as
// a \uXXXX sequence, with surrogate pairs outside the basic plane. JSON
// structure is always ASCII, so the pass is safe on whole documents.
func appendASCII(buf *bytes.Buffer, src []byte) {
	for i := 0; i < len(src); {
		c := src[i]
		if c < utf8.RuneSelf {
			buf.WriteByte(c)
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		i += size
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			appendUnicodeEscape(buf, hi)
			appendUnicodeEscape(buf, lo)
			continue
		}
		appendUnicodeEscape(buf, r)
	}
}

func appendUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexChars[(r>>12)&0xf])
	buf.WriteByte(hexChars[(r>>8)&0xf])
	buf.WriteByte(hexChars[(r>>4)&0xf])
	buf.WriteByte(hexChars[r&0xf])
}
