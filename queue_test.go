// FILE: queue_test.go
package ulog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropsWhenFull(t *testing.T) {
	q := newIngestQueue(4)

	for i := 0; i < 4; i++ {
		require.True(t, q.tryEnqueue(queueEntry{Message: "m"}))
	}
	assert.False(t, q.tryEnqueue(queueEntry{Message: "overflow"}))
	assert.Equal(t, uint64(4), q.enqueued.Load())
	assert.Equal(t, uint64(1), q.dropped.Load())
}

func TestQueueEstimatedSizeFromCounters(t *testing.T) {
	q := newIngestQueue(16)

	for i := 0; i < 10; i++ {
		q.tryEnqueue(queueEntry{})
	}
	assert.Equal(t, int64(10), q.estimatedSize())

	for i := 0; i < 3; i++ {
		<-q.ch
		q.dequeued.Add(1)
	}
	assert.Equal(t, int64(7), q.estimatedSize())
}

func TestQueueHealthThreshold(t *testing.T) {
	q := newIngestQueue(10)

	for i := 0; i < 7; i++ {
		q.tryEnqueue(queueEntry{})
	}
	assert.True(t, q.healthy())

	q.tryEnqueue(queueEntry{})
	assert.False(t, q.healthy(), "80% full is unhealthy")
}
