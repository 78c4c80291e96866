package core

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// coarseResolution is how often the cached timestamp is refreshed. Log
// records stamped from the coarse clock are accurate to within one tick.
const coarseResolution = 500 * time.Microsecond

var (
	coarseClockOnce sync.Once
	coarseNow       unsafe.Pointer // *time.Time
)

// StartCoarseClock starts the background goroutine that caches
// time.Now() every coarseResolution. Records obtained through
// GetRecordCoarse read the cached value instead of calling time.Now,
// trading sub-millisecond timestamp precision for a cheaper hot path.
// It is safe to call multiple times; the goroutine is started exactly
// once and runs for the lifetime of the process, which is intentional
// because logging typically spans the entire application lifecycle.
func StartCoarseClock() {
	coarseClockOnce.Do(func() {
		t := time.Now()
		atomic.StorePointer(&coarseNow, unsafe.Pointer(&t))
		go func() {
			ticker := time.NewTicker(coarseResolution)
			for range ticker.C {
				t := time.Now()
				atomic.StorePointer(&coarseNow, unsafe.Pointer(&t))
			}
		}()
	})
}

// CoarseNow returns the most recently cached time.Time value.
// StartCoarseClock must have been called before using CoarseNow.
func CoarseNow() time.Time {
	return *(*time.Time)(atomic.LoadPointer(&coarseNow))
}
