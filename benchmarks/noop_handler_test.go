package benchmarks

import (
	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/handler"
)

// noopHandler measures the record pipeline with formatting and I/O
// removed.
type noopHandler struct{}

func newNoopHandler() handler.Handler {
	return &noopHandler{}
}

func (h *noopHandler) Handle(rec *core.Record) error {
	_ = len(rec.Name)
	return nil
}

func (h *noopHandler) CanRecycleRecord() bool {
	return true
}

func (h *noopHandler) Close() error {
	return nil
}
