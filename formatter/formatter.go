package formatter

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Agnonimoose/jogger/core"
)

// Formatter defines the interface for log formatters
type Formatter interface {
	// Format formats a log record into bytes
	Format(record *core.Record) ([]byte, error)
}

// WriterFormatter is an optional interface that formatters can implement
// to write directly to a writer without intermediate byte slice allocation.
type WriterFormatter interface {
	// FormatTo formats a log record and writes it directly to the writer
	FormatTo(record *core.Record, w io.Writer) error
}

// Config holds common formatter configuration
type Config struct {
	// Template names the record attributes selected for output, one
	// placeholder per attribute (empty selects none)
	Template string
	// Style selects the placeholder syntax used by Template
	// (empty for StylePercent)
	Style Style
	// TimestampFormat specifies the time format (empty for RFC3339Nano)
	TimestampFormat string
}

// FormatTime renders a record timestamp for the asctime attribute.
func FormatTime(t time.Time, layout string) string {
	if layout == "" {
		layout = time.RFC3339Nano
	}
	return t.Format(layout)
}

// FormatException renders an error for the exc_info attribute: the error
// message followed by the stack trace when one is attached, without a
// trailing newline.
func FormatException(err error) string {
	if err == nil {
		return ""
	}
	var st interface{ StackTrace() errors.StackTrace }
	if errors.As(err, &st) {
		return strings.TrimRight(fmt.Sprintf("%s%+v", err.Error(), st.StackTrace()), "\n")
	}
	return err.Error()
}

// FormatStack normalizes captured stack text for the stack_info
// attribute, dropping the trailing newline runtime stack dumps carry.
func FormatStack(stack []byte) string {
	return strings.TrimRight(string(stack), "\n")
}

// bufferPool is a pool of bytes.Buffer to reduce allocations
var bufferPool = &sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}
