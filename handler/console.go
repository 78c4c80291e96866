package handler

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/formatter"
)

// lockedWriter wraps an io.Writer with a mutex, acquiring the lock only
// for Write calls. Formatters prepare data in their own pooled buffers
// and call Write once, so the lock is held only during the actual I/O.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	n, err = lw.w.Write(p)
	lw.mu.Unlock()
	return
}

// isConcurrentSafeWriter returns true if the writer is known to be safe
// for concurrent Write calls, allowing the handler to skip write-level
// locking.
func isConcurrentSafeWriter(w io.Writer) bool {
	if w == io.Discard {
		return true
	}
	_, ok := w.(*os.File)
	return ok
}

// ConsoleHandler writes log records to stdout/stderr or any io.Writer
type ConsoleHandler struct {
	writer          io.Writer
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	concurrentSafe  bool
	mu              sync.Mutex
	lw              lockedWriter
	stats           *Stats
	queue           *asyncQueue // nil in sync mode
}

// ConsoleConfig holds configuration for console handler
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Async enables asynchronous logging
	Async bool
	// BufferSize is the size of the async queue (default: 1000)
	BufferSize int
	// OverflowPolicy defines per-level overflow behavior (default: uses DefaultLevelPolicy)
	OverflowPolicy map[core.Level]OverflowPolicy
	// BlockTimeout is the timeout for blocking overflow policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout is the timeout for draining queue on Close (default: 5s)
	DrainTimeout time.Duration
	// ConcurrentWriter indicates the Writer supports concurrent Write
	// calls, letting the handler skip write-level locking. Automatically
	// detected for io.Discard and *os.File.
	ConcurrentWriter bool
}

func applyConsoleDefaults(cfg *ConsoleConfig) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{})
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.OverflowPolicy == nil {
		cfg.OverflowPolicy = DefaultLevelPolicy()
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 100 * time.Millisecond
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(cfg ConsoleConfig) *ConsoleHandler {
	applyConsoleDefaults(&cfg)

	h := &ConsoleHandler{
		writer:         cfg.Writer,
		formatter:      cfg.Formatter,
		concurrentSafe: cfg.ConcurrentWriter || isConcurrentSafeWriter(cfg.Writer),
		stats:          NewStats(),
	}

	// Cache WriterFormatter for the single-copy path
	h.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)
	h.lw = lockedWriter{mu: &h.mu, w: h.writer}

	if cfg.Async {
		h.queue = newAsyncQueue(cfg.BufferSize, cfg.OverflowPolicy, cfg.BlockTimeout, cfg.DrainTimeout, h.stats, h.write)
	}

	return h
}

// Handle processes a log record
func (h *ConsoleHandler) Handle(rec *core.Record) error {
	if h.queue == nil {
		return h.write(rec)
	}
	return h.queue.enqueue(rec)
}

// write formats and writes a record
func (h *ConsoleHandler) write(rec *core.Record) error {
	if h.writerFormatter != nil {
		var err error
		if h.concurrentSafe {
			err = h.writerFormatter.FormatTo(rec, h.writer)
		} else {
			err = h.writerFormatter.FormatTo(rec, &h.lw)
		}
		if err == nil {
			h.stats.IncrementProcessed()
		}
		return err
	}

	data, err := h.formatter.Format(rec)
	if err != nil {
		return err
	}

	if h.concurrentSafe {
		_, writeErr := h.writer.Write(data)
		if writeErr == nil {
			h.stats.IncrementProcessed()
		}
		return writeErr
	}

	h.mu.Lock()
	_, writeErr := h.writer.Write(data)
	h.mu.Unlock()

	if writeErr == nil {
		h.stats.IncrementProcessed()
	}

	return writeErr
}

// CanRecycleRecord returns true: the async path enqueues a copy, so the
// caller's record is free once Handle returns.
func (h *ConsoleHandler) CanRecycleRecord() bool {
	return true
}

// Stats returns a snapshot of the current statistics
func (h *ConsoleHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close drains and stops the async queue. Safe to call more than once.
func (h *ConsoleHandler) Close() error {
	if h.queue != nil {
		h.queue.close()
	}
	return nil
}
