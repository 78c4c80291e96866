package formatter

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/Agnonimoose/jogger/core"
)

// TextFormatter formats log records as human-readable text. It renders
// a fixed single-line layout (timestamp, level, caller, logger name,
// message, sorted key=value extras) and ignores the Template; exception
// and stack text follow on their own lines when the record carries them.
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339
	}
	return &TextFormatter{Config: cfg}
}

// Format formats a record as text
func (f *TextFormatter) Format(rec *core.Record) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.formatToBuffer(rec, buf)

	// Copy buffer content to return
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats a record and writes it directly to the writer
func (f *TextFormatter) FormatTo(rec *core.Record, w io.Writer) error {
	buf := getBuffer()

	f.formatToBuffer(rec, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// pre-formatted level strings to avoid multiple WriteString calls
var levelBrackets = [...]string{
	core.DebugLevel: " [DEBUG] ",
	core.InfoLevel:  " [INFO] ",
	core.WarnLevel:  " [WARN] ",
	core.ErrorLevel: " [ERROR] ",
	core.FatalLevel: " [FATAL] ",
	core.PanicLevel: " [PANIC] ",
}

// formatToBuffer writes the formatted record into the given buffer
func (f *TextFormatter) formatToBuffer(rec *core.Record, buf *bytes.Buffer) {
	// Timestamp - use AppendFormat to avoid string allocation
	buf.Write(rec.Created.AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))

	// Level - use pre-formatted string
	if int(rec.Level) < len(levelBrackets) && int(rec.Level) >= 0 {
		buf.WriteString(levelBrackets[rec.Level])
	} else {
		buf.WriteString(" [UNKNOWN] ")
	}

	// Caller info when the record carries it
	if rec.FileName != "" {
		buf.WriteByte('[')
		buf.WriteString(rec.FileName)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(rec.LineNo))
		buf.WriteString("] ")
	}

	// Logger name
	if rec.Name != "" {
		buf.WriteString(rec.Name)
		buf.WriteString(": ")
	}

	// Message
	buf.WriteString(rec.GetMessage())

	// Extras, sorted so output is deterministic
	extraKeys := make([]string, 0, len(rec.Extra))
	for k := range rec.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteByte('=')
		appendValue(buf, rec.Extra[k])
	}

	// Exception and stack text on their own lines, like the message
	// terminators the standard text formats use
	if exc := excText(rec); exc != "" {
		buf.WriteByte('\n')
		buf.WriteString(exc)
	}
	if rec.Stack != "" {
		buf.WriteByte('\n')
		buf.WriteString(rec.Stack)
	}

	buf.WriteByte('\n')
}

// excText resolves the exception text for a record: pre-formatted text
// wins, otherwise the error is rendered on demand.
func excText(rec *core.Record) string {
	if rec.ExcText != "" {
		return rec.ExcText
	}
	if rec.Err != nil {
		return FormatException(rec.Err)
	}
	return ""
}

// appendValue writes a key=value rendering of an extra's value, with
// allocation-free paths for the common kinds.
func appendValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case string:
		buf.WriteString(val)
	case bool:
		buf.Write(strconv.AppendBool(buf.AvailableBuffer(), val))
	case int:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(val), 10))
	case int64:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), val, 10))
	case uint64:
		buf.Write(strconv.AppendUint(buf.AvailableBuffer(), val, 10))
	case float64:
		buf.Write(strconv.AppendFloat(buf.AvailableBuffer(), val, 'f', -1, 64))
	case time.Duration:
		buf.WriteString(val.String())
	case time.Time:
		buf.Write(val.AppendFormat(buf.AvailableBuffer(), time.RFC3339))
	case error:
		buf.WriteString(val.Error())
	default:
		fmt.Fprint(buf, val)
	}
}
