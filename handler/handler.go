package handler

import (
	"github.com/Agnonimoose/jogger/core"
)

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log record
	Handle(rec *core.Record) error

	// Close closes the handler and releases resources
	Close() error
}

// RecordRecycler is an optional interface handlers implement to tell
// callers whether a record may be returned to the pool once Handle has
// returned. Handlers that retain the record beyond Handle must report
// false. The built-in asynchronous handlers enqueue a copy, so all of
// them report true.
type RecordRecycler interface {
	CanRecycleRecord() bool
}

// StatsProvider is an optional interface for handlers that track
// dropped, blocked, and processed counts.
type StatsProvider interface {
	Stats() Snapshot
}

// CanRecycle reports whether a record handed to h may be recycled after
// Handle returns. Handlers that do not implement RecordRecycler are
// assumed to retain records.
func CanRecycle(h Handler) bool {
	if rc, ok := h.(RecordRecycler); ok {
		return rc.CanRecycleRecord()
	}
	return false
}
