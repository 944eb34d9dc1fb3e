// FILE: storage_test.go
package ulog

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEntry(channel, message string) LogEntry {
	return LogEntry{
		Message:   message,
		Channel:   channel,
		Level:     LevelInfo,
		Timestamp: time.Now(),
		ThreadID:  1,
	}
}

func TestStoreInsertAndGet(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 10; i++ {
		require.True(t, store.insert(makeEntry("Gameplay", fmt.Sprintf("event %d", i)), 100))
	}

	entries := store.getEntries("Gameplay", 0)
	require.Len(t, entries, 10)
	assert.Equal(t, "event 0", entries[0].Message)
	assert.Equal(t, "event 9", entries[9].Message)

	recent := store.getEntries("Gameplay", 3)
	require.Len(t, recent, 3)
	assert.Equal(t, "event 7", recent[0].Message)
}

func TestStoreChannelCapTrimsOldest(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 150; i++ {
		store.insert(makeEntry("Gameplay", fmt.Sprintf("event %d", i)), 100)
	}

	entries := store.getEntries("Gameplay", 0)
	require.Len(t, entries, 100)
	assert.Equal(t, "event 50", entries[0].Message)
	assert.Equal(t, "event 149", entries[99].Message)
}

func TestStoreChannelCapsAreIndependent(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 50; i++ {
		store.insert(makeEntry("Gameplay", "g"), 10)
		store.insert(makeEntry("Network", "n"), 30)
	}

	assert.Equal(t, 10, store.entryCount("Gameplay"))
	assert.Equal(t, 30, store.entryCount("Network"))
}

func TestStoreEvictionTrimsToTarget(t *testing.T) {
	budget := int64(50_000)
	tracker := newMemoryTracker(budget)
	store := newEntryStore(tracker)

	// Each entry is a bit over the fixed overhead, fill well past the
	// admission threshold
	for i := 0; i < 400; i++ {
		store.insert(makeEntry("Gameplay", fmt.Sprintf("padded message %04d", i)), 10_000)
	}

	assert.Positive(t, tracker.trimmingEvents.Load())
	assert.LessOrEqual(t, tracker.total.Load(), budget)

	// A direct trim pass lands at or below the default tier target
	store.trimToBudget(tracker.trimTarget())
	assert.LessOrEqual(t, tracker.total.Load(), int64(float64(budget)*trimTargetDefault))
}

func TestStoreEvictionTargetsLargestChannelFirst(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 100; i++ {
		store.insert(makeEntry("Big", "a long message body to make this channel the heavy one"), 10_000)
	}
	for i := 0; i < 5; i++ {
		store.insert(makeEntry("Small", "x"), 10_000)
	}

	bigBefore := store.entryCount("Big")
	store.trimToBudget(tracker.total.Load() / 2)

	assert.Less(t, store.entryCount("Big"), bigBefore)
	assert.Equal(t, 5, store.entryCount("Small"), "smaller channel untouched when big channel covers the need")
}

func TestStoreClearChannel(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	store.insert(makeEntry("Gameplay", "a"), 100)
	store.insert(makeEntry("Network", "b"), 100)

	store.clearChannel("Gameplay")
	assert.Empty(t, store.getEntries("Gameplay", 0))
	assert.Len(t, store.getEntries("Network", 0), 1)
	assert.Equal(t, int64(1), tracker.entries.Load())
}

func TestStoreClearAllResetsAccounting(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 20; i++ {
		store.insert(makeEntry("Gameplay", "a"), 100)
		store.insert(makeEntry("Network", "b"), 100)
	}

	store.clearAll()
	assert.Zero(t, tracker.total.Load())
	assert.Zero(t, tracker.entries.Load())
	assert.Empty(t, store.getEntries("Gameplay", 0))
}

func TestStoreMarginAdmitsBorderlineEntryAfterTrim(t *testing.T) {
	budget := int64(10_000)

	// Entry overshoots the budget by 1%, inside the safety margin: the
	// post-trim re-check admits it
	tracker := newMemoryTracker(budget)
	store := newEntryStore(tracker)
	within := makeEntry("C", strings.Repeat("x", 9843)) // 10,100 bytes
	assert.True(t, store.insert(within, 100))
	assert.Zero(t, tracker.droppedOverBudget.Load())
	assert.Len(t, store.getEntries("C", 0), 1)

	// 3% over the budget is past the margin and gets dropped
	tracker = newMemoryTracker(budget)
	store = newEntryStore(tracker)
	beyond := makeEntry("C", strings.Repeat("x", 10043)) // 10,300 bytes
	assert.False(t, store.insert(beyond, 100))
	assert.Equal(t, uint64(1), tracker.droppedOverBudget.Load())
	assert.Empty(t, store.getEntries("C", 0))
}

func TestMemoryTrackerTrimTargetTiers(t *testing.T) {
	tracker := newMemoryTracker(1000)

	tracker.total.Store(1050) // 5% over
	assert.Equal(t, int64(750), tracker.trimTarget())

	tracker.total.Store(1150) // 15% over
	assert.Equal(t, int64(600), tracker.trimTarget())

	tracker.total.Store(1500) // 50% over
	assert.Equal(t, int64(500), tracker.trimTarget())
}

func TestMemoryDiagnosticsLargestChannel(t *testing.T) {
	tracker := newMemoryTracker(1 << 20)
	store := newEntryStore(tracker)

	for i := 0; i < 10; i++ {
		store.insert(makeEntry("Big", "a fairly long message to accumulate bytes"), 100)
	}
	store.insert(makeEntry("Small", "x"), 100)

	md := tracker.diagnostics()
	assert.Equal(t, "Big", md.LargestChannelName)
	assert.Equal(t, int64(11), md.TotalEntries)
	assert.Positive(t, md.MemoryUsagePercent)
}
