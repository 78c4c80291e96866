package handler

import (
	"sync"
	"time"

	"github.com/Agnonimoose/jogger/core"
)

// asyncQueue is the bounded record queue behind the asynchronous
// handlers. Enqueueing applies the per-level overflow policy; a single
// consumer goroutine drains the queue through the owner's write
// function and recycles consumed records.
//
// The queue stores copies, never the caller's record, so callers may
// recycle their record as soon as enqueue returns and a record fanned
// out to several handlers is never freed twice.
type asyncQueue struct {
	ch           chan *core.Record
	policy       map[core.Level]OverflowPolicy
	blockTimeout time.Duration
	drainTimeout time.Duration
	stats        *Stats
	write        func(*core.Record) error

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

// newAsyncQueue creates the queue and starts its consumer goroutine.
func newAsyncQueue(size int, policy map[core.Level]OverflowPolicy, blockTimeout, drainTimeout time.Duration, stats *Stats, write func(*core.Record) error) *asyncQueue {
	q := &asyncQueue{
		ch:           make(chan *core.Record, size),
		policy:       policy,
		blockTimeout: blockTimeout,
		drainTimeout: drainTimeout,
		stats:        stats,
		write:        write,
		closed:       make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// enqueue hands a copy of rec to the consumer, applying the overflow
// policy for its level when the queue is full. After close the consumer
// is gone, so the record is written synchronously instead of queued.
func (q *asyncQueue) enqueue(rec *core.Record) error {
	select {
	case <-q.closed:
		return q.write(rec)
	default:
	}

	c := rec.Clone()

	policy, ok := q.policy[rec.Level]
	if !ok {
		policy = DropNewest
	}

	switch policy {
	case Block:
		select {
		case q.ch <- c:
			return nil
		default:
		}
		select {
		case q.ch <- c:
			return nil
		case <-time.After(q.blockTimeout):
			// Timeout - fall back to a synchronous write
			q.stats.IncrementBlocked()
			core.PutRecord(c)
			return q.write(rec)
		case <-q.closed:
			core.PutRecord(c)
			return q.write(rec)
		}

	case DropOldest:
		select {
		case q.ch <- c:
			return nil
		default:
		}
		// Queue full - evict the oldest to make room
		select {
		case old := <-q.ch:
			q.stats.IncrementDropped(old.Level)
			core.PutRecord(old)
		default:
		}
		select {
		case q.ch <- c:
			return nil
		default:
			// Still full, drop this one
			q.stats.IncrementDropped(rec.Level)
			core.PutRecord(c)
			return nil
		}

	case DropNewest:
		fallthrough
	default:
		select {
		case q.ch <- c:
			return nil
		default:
			q.stats.IncrementDropped(rec.Level)
			core.PutRecord(c)
			return nil
		}
	}
}

// run is the consumer loop. Write failures are counted, not fatal: the
// consumer keeps draining so the queue can never silently back up.
func (q *asyncQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case rec := <-q.ch:
			q.consume(rec)
			// Drain whatever else is already queued before parking again
		batch:
			for {
				select {
				case rec := <-q.ch:
					q.consume(rec)
				default:
					break batch
				}
			}
		case <-q.closed:
			// Drain remaining records with timeout
			deadline := time.After(q.drainTimeout)
			for {
				select {
				case rec := <-q.ch:
					q.consume(rec)
				case <-deadline:
					return
				default:
					// Queue empty
					return
				}
			}
		}
	}
}

func (q *asyncQueue) consume(rec *core.Record) {
	if err := q.write(rec); err != nil {
		q.stats.IncrementWriteErrors()
	}
	core.PutRecord(rec)
}

// close stops the consumer after a final drain. Safe to call more than
// once and from multiple goroutines; enqueue after close degrades to a
// synchronous write instead of panicking, because the channel itself is
// never closed.
func (q *asyncQueue) close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	q.wg.Wait()
}
