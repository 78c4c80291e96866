package handler

import (
	"sync/atomic"

	"github.com/Agnonimoose/jogger/core"
)

// OverflowPolicy defines how to handle full async queues
type OverflowPolicy int

const (
	// DropNewest drops the incoming log record when the queue is full
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the oldest queued record to make room
	DropOldest
	// Block waits for space until a timeout, then writes synchronously
	Block
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// DefaultLevelPolicy returns the default level-based overflow policies:
// routine levels are droppable, error and above never silently vanish.
func DefaultLevelPolicy() map[core.Level]OverflowPolicy {
	return map[core.Level]OverflowPolicy{
		core.DebugLevel: DropNewest,
		core.InfoLevel:  DropNewest,
		core.WarnLevel:  DropNewest,
		core.ErrorLevel: Block,
		core.FatalLevel: Block,
		core.PanicLevel: Block,
	}
}

// levelCount is the size of per-level counter arrays.
const levelCount = int(core.PanicLevel) + 1

// Stats tracks handler statistics. All counters are updated atomically
// and may be read while the handler is running.
type Stats struct {
	dropped [levelCount]uint64
	// blockedTotal counts times a Block enqueue timed out and fell back
	// to a synchronous write
	blockedTotal uint64
	// processedTotal counts records written out
	processedTotal uint64
	// writeErrorsTotal counts failed writes on the async path
	writeErrorsTotal uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementDropped atomically increments the dropped counter for a level.
// Out-of-range levels are counted against the highest bucket.
func (s *Stats) IncrementDropped(level core.Level) {
	i := int(level)
	if i < 0 || i >= levelCount {
		i = levelCount - 1
	}
	atomic.AddUint64(&s.dropped[i], 1)
}

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() {
	atomic.AddUint64(&s.blockedTotal, 1)
}

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() {
	atomic.AddUint64(&s.processedTotal, 1)
}

// AddProcessed atomically adds n to the processed counter
func (s *Stats) AddProcessed(n uint64) {
	atomic.AddUint64(&s.processedTotal, n)
}

// IncrementWriteErrors atomically increments the write error counter
func (s *Stats) IncrementWriteErrors() {
	atomic.AddUint64(&s.writeErrorsTotal, 1)
}

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	i := int(level)
	if i < 0 || i >= levelCount {
		return 0
	}
	return atomic.LoadUint64(&s.dropped[i])
}

// GetBlocked returns the blocked count
func (s *Stats) GetBlocked() uint64 {
	return atomic.LoadUint64(&s.blockedTotal)
}

// GetProcessed returns the processed count
func (s *Stats) GetProcessed() uint64 {
	return atomic.LoadUint64(&s.processedTotal)
}

// GetWriteErrors returns the failed write count
func (s *Stats) GetWriteErrors() uint64 {
	return atomic.LoadUint64(&s.writeErrorsTotal)
}

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	var total uint64
	for i := range s.dropped {
		total += atomic.LoadUint64(&s.dropped[i])
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.dropped {
		atomic.StoreUint64(&s.dropped[i], 0)
	}
	atomic.StoreUint64(&s.blockedTotal, 0)
	atomic.StoreUint64(&s.processedTotal, 0)
	atomic.StoreUint64(&s.writeErrorsTotal, 0)
}

// Snapshot is a point-in-time copy of handler statistics.
type Snapshot struct {
	DroppedTotal     map[core.Level]uint64
	BlockedTotal     uint64
	ProcessedTotal   uint64
	WriteErrorsTotal uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	dropped := make(map[core.Level]uint64, levelCount)
	for i := range s.dropped {
		dropped[core.Level(i)] = atomic.LoadUint64(&s.dropped[i])
	}
	return Snapshot{
		DroppedTotal:     dropped,
		BlockedTotal:     s.GetBlocked(),
		ProcessedTotal:   s.GetProcessed(),
		WriteErrorsTotal: s.GetWriteErrors(),
	}
}
