package handler

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/formatter"
)

// backupTimeFormat names rotated files down to the nanosecond so two
// rotations can never clobber each other.
const backupTimeFormat = "2006-01-02T15-04-05.000000000"

// compressedExt is the suffix appended to gzip-compressed backups.
const compressedExt = ".gz"

// FileHandler writes log records to a file with rotation support
type FileHandler struct {
	filename       string
	file           *os.File
	formatter      formatter.Formatter
	maxSize        int64
	maxAge         time.Duration
	maxBackups     int
	rotateInterval time.Duration
	compress       bool
	currentSize    int64
	lastRotateTime time.Time
	mu             sync.Mutex
	stats          *Stats
	queue          *asyncQueue // nil in sync mode
	compressWG     sync.WaitGroup
}

// FileConfig holds configuration for file handler
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Async enables asynchronous logging
	Async bool
	// BufferSize is the size of the async queue (default: 1000)
	BufferSize int
	// MaxSize is the maximum size in bytes before rotation (0 = no size rotation)
	MaxSize int64
	// MaxAge is the maximum age before rotation (0 = no time rotation)
	MaxAge time.Duration
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// RotateInterval is the interval for time-based rotation (0 = no interval rotation)
	RotateInterval time.Duration
	// Compress gzips rotated backups in the background
	Compress bool
	// OverflowPolicy defines per-level overflow behavior (default: uses DefaultLevelPolicy)
	OverflowPolicy map[core.Level]OverflowPolicy
	// BlockTimeout is the timeout for blocking overflow policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout is the timeout for draining queue on Close (default: 5s)
	DrainTimeout time.Duration
}

// NewFileHandler creates a new file handler
func NewFileHandler(cfg FileConfig) (*FileHandler, error) {
	if cfg.Filename == "" {
		return nil, errors.New("filename is required")
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

	dir := filepath.Dir(cfg.Filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}

	file, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "stat log file")
	}

	h := &FileHandler{
		filename:       cfg.Filename,
		file:           file,
		formatter:      cfg.Formatter,
		maxSize:        cfg.MaxSize,
		maxAge:         cfg.MaxAge,
		maxBackups:     cfg.MaxBackups,
		rotateInterval: cfg.RotateInterval,
		compress:       cfg.Compress,
		currentSize:    info.Size(),
		lastRotateTime: time.Now(),
		stats:          NewStats(),
	}

	if cfg.Async {
		h.queue = newAsyncQueue(cfg.BufferSize, cfg.OverflowPolicy, cfg.BlockTimeout, cfg.DrainTimeout, h.stats, h.write)
	}

	return h, nil
}

// Handle processes a log record
func (h *FileHandler) Handle(rec *core.Record) error {
	if h.queue == nil {
		return h.write(rec)
	}
	return h.queue.enqueue(rec)
}

// write formats and writes a record, rotating first when a limit is hit
func (h *FileHandler) write(rec *core.Record) error {
	data, err := h.formatter.Format(rec)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return errors.New("handler closed")
	}

	if err := h.rotateIfNeeded(); err != nil {
		return err
	}

	n, err := h.file.Write(data)
	if err == nil {
		h.currentSize += int64(n)
		h.stats.IncrementProcessed()
	}

	return err
}

// CanRecycleRecord returns true: the async path enqueues a copy, so the
// caller's record is free once Handle returns.
func (h *FileHandler) CanRecycleRecord() bool {
	return true
}

// rotateIfNeeded checks and performs rotation if needed. Caller holds mu.
func (h *FileHandler) rotateIfNeeded() error {
	needRotate := false

	if h.maxSize > 0 && h.currentSize >= h.maxSize {
		needRotate = true
	}
	if h.maxAge > 0 && time.Since(h.lastRotateTime) >= h.maxAge {
		needRotate = true
	}
	if h.rotateInterval > 0 && time.Since(h.lastRotateTime) >= h.rotateInterval {
		needRotate = true
	}

	if !needRotate {
		return nil
	}

	return h.rotate()
}

// rotate closes the current file, renames it to a timestamped backup,
// and opens a fresh file. Caller holds mu.
func (h *FileHandler) rotate() error {
	if err := h.file.Sync(); err != nil {
		return err
	}
	if err := h.file.Close(); err != nil {
		return err
	}

	rotatedName := h.filename + "." + time.Now().Format(backupTimeFormat)

	if err := os.Rename(h.filename, rotatedName); err != nil {
		// If rename fails, try to reopen the original file
		file, openErr := os.OpenFile(h.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr != nil {
			return errors.Wrapf(openErr, "rotation failed (%v), reopen failed", err)
		}
		h.file = file
		return err
	}

	if h.compress {
		h.compressWG.Add(1)
		go h.compressBackup(rotatedName)
	}

	if h.maxBackups > 0 {
		h.cleanupOldBackups()
	}

	file, err := os.OpenFile(h.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	h.file = file
	h.currentSize = 0
	h.lastRotateTime = time.Now()

	return nil
}

// compressBackup gzips a rotated backup and removes the original. Runs
// off the write path so a large backup never stalls logging. On any
// failure the uncompressed backup is left in place.
func (h *FileHandler) compressBackup(path string) {
	defer h.compressWG.Done()

	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + compressedExt)
	if err != nil {
		return
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(path + compressedExt)
		return
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(path + compressedExt)
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(path + compressedExt)
		return
	}

	os.Remove(path)
}

// cleanupOldBackups removes old backup files based on MaxBackups.
// Compressed and uncompressed backups count alike.
func (h *FileHandler) cleanupOldBackups() {
	dir := filepath.Dir(h.filename)
	base := filepath.Base(h.filename)

	pattern := filepath.Join(dir, base+".*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	var backups []string
	for _, match := range matches {
		if strings.HasPrefix(filepath.Base(match), base+".") {
			backups = append(backups, match)
		}
	}

	// Oldest first
	sort.Slice(backups, func(i, j int) bool {
		infoI, errI := os.Stat(backups[i])
		infoJ, errJ := os.Stat(backups[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().Before(infoJ.ModTime())
	})

	if len(backups) > h.maxBackups {
		for _, file := range backups[:len(backups)-h.maxBackups] {
			if err := os.Remove(file); err != nil {
				return
			}
		}
	}
}

// Stats returns a snapshot of the current statistics
func (h *FileHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close drains the async queue, waits for in-flight compression, and
// syncs the file. Safe to call more than once.
func (h *FileHandler) Close() error {
	if h.queue != nil {
		h.queue.close()
	}
	h.compressWG.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}
	file := h.file
	h.file = nil

	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
