package handler

import (
	"github.com/Agnonimoose/jogger/core"
)

// MultiHandler sends log records to multiple handlers
type MultiHandler struct {
	handlers []Handler
	recycle  bool
}

// NewMultiHandler creates a new multi-handler
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	m := &MultiHandler{
		handlers: handlers,
		recycle:  true,
	}
	for _, h := range handlers {
		if !CanRecycle(h) {
			m.recycle = false
			break
		}
	}
	return m
}

// Handle processes a log record by sending it to all handlers. Every
// handler sees the record even when an earlier one fails; the last
// error wins.
func (h *MultiHandler) Handle(rec *core.Record) error {
	var lastErr error
	for _, handler := range h.handlers {
		if err := handler.Handle(rec); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CanRecycleRecord returns true when every child handler releases the
// record before Handle returns.
func (h *MultiHandler) CanRecycleRecord() bool {
	return h.recycle
}

// Stats aggregates the snapshots of all children that track statistics.
func (h *MultiHandler) Stats() Snapshot {
	agg := Snapshot{DroppedTotal: make(map[core.Level]uint64, levelCount)}
	for _, handler := range h.handlers {
		sp, ok := handler.(StatsProvider)
		if !ok {
			continue
		}
		snap := sp.Stats()
		for level, n := range snap.DroppedTotal {
			agg.DroppedTotal[level] += n
		}
		agg.BlockedTotal += snap.BlockedTotal
		agg.ProcessedTotal += snap.ProcessedTotal
		agg.WriteErrorsTotal += snap.WriteErrorsTotal
	}
	return agg
}

// Close closes all handlers
func (h *MultiHandler) Close() error {
	var lastErr error
	for _, handler := range h.handlers {
		if err := handler.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
