// FILE: memory.go
package ulog

import (
	"sync"
	"sync/atomic"
)

// memoryTracker accounts for retained entry bytes against the budget.
// The total is atomic for cheap admission checks; the per-channel map
// is guarded for eviction ordering.
type memoryTracker struct {
	total  atomic.Int64
	budget atomic.Int64

	mu         sync.Mutex
	perChannel map[string]int64

	entries           atomic.Int64
	trimmingEvents    atomic.Uint64
	droppedOverBudget atomic.Uint64
}

func newMemoryTracker(budgetBytes int64) *memoryTracker {
	t := &memoryTracker{
		perChannel: make(map[string]int64),
	}
	t.budget.Store(budgetBytes)
	return t
}

// entrySize estimates the retained footprint of an entry. String bytes
// plus a fixed overhead for struct fields and container bookkeeping.
func entrySize(e *LogEntry) int64 {
	return int64(len(e.Message)) + int64(len(e.Channel)) + entryOverheadBytes
}

// wouldExceed reports whether adding size bytes would pass the budget.
func (t *memoryTracker) wouldExceed(size int64) bool {
	return t.total.Load()+size > t.budget.Load()
}

// wouldExceedMargin is the post-eviction re-check: trim granularity is
// a whole fraction of a channel, so an overshoot within the safety
// margin is tolerated rather than dropped.
func (t *memoryTracker) wouldExceedMargin(size int64) bool {
	budget := t.budget.Load()
	return t.total.Load()+size > int64(float64(budget)*(1.0+budgetSafetyMargin))
}

func (t *memoryTracker) add(channel string, size int64) {
	t.total.Add(size)
	t.entries.Add(1)
	t.mu.Lock()
	t.perChannel[channel] += size
	t.mu.Unlock()
}

func (t *memoryTracker) remove(channel string, size int64, count int64) {
	t.total.Add(-size)
	t.entries.Add(-count)
	t.mu.Lock()
	t.perChannel[channel] -= size
	if t.perChannel[channel] <= 0 {
		delete(t.perChannel, channel)
	}
	t.mu.Unlock()
}

func (t *memoryTracker) dropChannel(channel string, count int64) {
	t.mu.Lock()
	size := t.perChannel[channel]
	delete(t.perChannel, channel)
	t.mu.Unlock()
	t.total.Add(-size)
	t.entries.Add(-count)
}

// channelsBySize returns channel names ordered largest first.
func (t *memoryTracker) channelsBySize() []string {
	t.mu.Lock()
	type usage struct {
		name string
		size int64
	}
	usages := make([]usage, 0, len(t.perChannel))
	for name, size := range t.perChannel {
		usages = append(usages, usage{name, size})
	}
	t.mu.Unlock()

	for i := 1; i < len(usages); i++ {
		for j := i; j > 0 && usages[j].size > usages[j-1].size; j-- {
			usages[j], usages[j-1] = usages[j-1], usages[j]
		}
	}

	names := make([]string, len(usages))
	for i, u := range usages {
		names[i] = u.name
	}
	return names
}

func (t *memoryTracker) channelUsage(channel string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perChannel[channel]
}

// trimTarget picks the post-eviction target from how far usage
// overshot the budget. Worse overshoot trims deeper.
func (t *memoryTracker) trimTarget() int64 {
	budget := t.budget.Load()
	total := t.total.Load()
	if budget <= 0 {
		return 0
	}
	ratio := float64(total) / float64(budget)
	switch {
	case ratio > overageRatioSevere:
		return int64(float64(budget) * trimTargetSevere)
	case ratio > overageRatioModerate:
		return int64(float64(budget) * trimTargetModerate)
	default:
		return int64(float64(budget) * trimTargetDefault)
	}
}

func (t *memoryTracker) diagnostics() MemoryDiagnostics {
	budget := t.budget.Load()
	total := t.total.Load()

	var pct float64
	if budget > 0 {
		pct = float64(total) / float64(budget) * 100.0
	}

	var largestName string
	var largestSize int64
	t.mu.Lock()
	for name, size := range t.perChannel {
		if size > largestSize {
			largestName = name
			largestSize = size
		}
	}
	t.mu.Unlock()

	return MemoryDiagnostics{
		TotalMemoryUsed:     total,
		MemoryBudget:        budget,
		TotalEntries:        t.entries.Load(),
		TrimmingEvents:      t.trimmingEvents.Load(),
		DroppedOverBudget:   t.droppedOverBudget.Load(),
		MemoryUsagePercent:  pct,
		LargestChannelName:  largestName,
		LargestChannelUsage: largestSize,
	}
}

// healthy reports whether usage is below 90% of the budget.
func (t *memoryTracker) healthy() bool {
	budget := t.budget.Load()
	if budget <= 0 {
		return true
	}
	return float64(t.total.Load()) < float64(budget)*0.9
}
