package handler

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/formatter"
)

// HTTPHandler ships formatted log lines to a collector endpoint in
// newline-delimited JSON batches. Records are formatted on the caller's
// goroutine and only the resulting bytes are queued, so callers can
// always recycle their records immediately. A background goroutine
// batches queued lines and POSTs them when the batch fills or the flush
// interval elapses; when the queue is full new lines are dropped rather
// than blocking the caller.
type HTTPHandler struct {
	url        string
	apiKey     string
	instanceID string
	client     *http.Client
	formatter  formatter.Formatter

	queue         chan queuedLine
	batchSize     int
	flushInterval time.Duration
	drainTimeout  time.Duration

	stats     *Stats
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// queuedLine carries a formatted line with the level it was logged at,
// so drops can still be counted per level.
type queuedLine struct {
	data  []byte
	level core.Level
}

// HTTPConfig holds configuration for the HTTP shipping handler
type HTTPConfig struct {
	// URL is the collector endpoint to POST batches to (required)
	URL string
	// APIKey is sent as a bearer token when non-empty
	APIKey string
	// Formatter renders records to lines (default: JSONFormatter with
	// message template and injected timestamp)
	Formatter formatter.Formatter
	// BufferSize is the size of the line queue (default: 1024)
	BufferSize int
	// BatchSize is the number of lines that triggers an immediate send
	// (default: 100)
	BatchSize int
	// FlushInterval is how often a partial batch is sent (default: 1s)
	FlushInterval time.Duration
	// Timeout bounds each POST (default: 5s); ignored when Client is set
	Timeout time.Duration
	// Client overrides the default HTTP client
	Client *http.Client
	// DrainTimeout is the timeout for draining the queue on Close (default: 5s)
	DrainTimeout time.Duration
}

// NewHTTPHandler creates a new HTTP shipping handler and starts its
// background sender.
func NewHTTPHandler(cfg HTTPConfig) (*HTTPHandler, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	if cfg.Formatter == nil {
		f, err := formatter.NewJSONFormatter(formatter.JSONConfig{
			Config:    formatter.Config{Template: formatter.DefaultTemplate},
			Timestamp: true,
		})
		if err != nil {
			return nil, err
		}
		cfg.Formatter = f
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}

	h := &HTTPHandler{
		url:           cfg.URL,
		apiKey:        cfg.APIKey,
		instanceID:    uuid.NewString(),
		client:        cfg.Client,
		formatter:     cfg.Formatter,
		queue:         make(chan queuedLine, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		drainTimeout:  cfg.DrainTimeout,
		stats:         NewStats(),
		done:          make(chan struct{}),
	}

	h.wg.Add(1)
	go h.runLoop()

	return h, nil
}

// InstanceID returns the identifier sent with every batch, letting a
// collector tell restarts and replicas apart.
func (h *HTTPHandler) InstanceID() string {
	return h.instanceID
}

// Handle formats a record and queues the line for shipping. A full
// queue drops the line rather than blocking.
func (h *HTTPHandler) Handle(rec *core.Record) error {
	data, err := h.formatter.Format(rec)
	if err != nil {
		return err
	}
	select {
	case h.queue <- queuedLine{data: data, level: rec.Level}:
	default:
		h.stats.IncrementDropped(rec.Level)
	}
	return nil
}

// CanRecycleRecord returns true: only formatted bytes are retained.
func (h *HTTPHandler) CanRecycleRecord() bool {
	return true
}

// runLoop batches queued lines and sends them when the batch fills or
// the flush interval fires. On shutdown it drains the queue with a
// timeout before sending the final batch.
func (h *HTTPHandler) runLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	batch := make([]queuedLine, 0, h.batchSize)

	for {
		select {
		case line := <-h.queue:
			batch = append(batch, line)
			if len(batch) >= h.batchSize {
				h.send(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				h.send(batch)
				batch = batch[:0]
			}
		case <-h.done:
			deadline := time.After(h.drainTimeout)
			for {
				select {
				case line := <-h.queue:
					batch = append(batch, line)
					if len(batch) >= h.batchSize {
						h.send(batch)
						batch = batch[:0]
					}
				case <-deadline:
					if len(batch) > 0 {
						h.send(batch)
					}
					return
				default:
					if len(batch) > 0 {
						h.send(batch)
					}
					return
				}
			}
		}
	}
}

// send POSTs one batch as application/x-ndjson. Failures are counted;
// the batch is not retried.
func (h *HTTPHandler) send(batch []queuedLine) {
	var body bytes.Buffer
	for _, line := range batch {
		body.Write(line.data)
	}

	req, err := http.NewRequest(http.MethodPost, h.url, &body)
	if err != nil {
		h.stats.IncrementWriteErrors()
		return
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("X-Instance-ID", h.instanceID)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.stats.IncrementWriteErrors()
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		h.stats.IncrementWriteErrors()
		return
	}
	h.stats.AddProcessed(uint64(len(batch)))
}

// Stats returns a snapshot of the current statistics
func (h *HTTPHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close flushes pending lines and stops the sender. Safe to call more
// than once.
func (h *HTTPHandler) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
	return nil
}
