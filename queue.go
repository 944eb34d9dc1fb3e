// FILE: queue.go
package ulog

import (
	"sync/atomic"
)

// ingestQueue is the bounded hand-off between producer goroutines and
// the single processor. Producers never block: a full queue drops the
// record and bumps the counter.
type ingestQueue struct {
	ch       chan queueEntry
	capacity int64

	enqueued atomic.Uint64
	dequeued atomic.Uint64
	dropped  atomic.Uint64
}

func newIngestQueue(capacity int64) *ingestQueue {
	return &ingestQueue{
		ch:       make(chan queueEntry, capacity),
		capacity: capacity,
	}
}

// tryEnqueue offers an entry without blocking.
func (q *ingestQueue) tryEnqueue(e queueEntry) bool {
	select {
	case q.ch <- e:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// estimatedSize derives the backlog from the counters rather than
// len(ch) so the estimate stays consistent with the diagnostics.
func (q *ingestQueue) estimatedSize() int64 {
	size := int64(q.enqueued.Load()) - int64(q.dequeued.Load())
	if size < 0 {
		size = 0
	}
	return size
}

// healthy reports whether the backlog is below 80% of capacity.
func (q *ingestQueue) healthy() bool {
	return q.estimatedSize() < q.capacity*8/10
}

func (q *ingestQueue) close() {
	close(q.ch)
}
