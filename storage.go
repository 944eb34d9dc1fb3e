// FILE: storage.go
package ulog

import (
	"sync"
)

// entryStore retains recent entries per channel under the memory
// budget. Writes come only from the processor goroutine; reads come
// from any caller through the diagnostics API.
type entryStore struct {
	mu      sync.RWMutex
	entries map[string][]LogEntry

	tracker *memoryTracker
}

func newEntryStore(tracker *memoryTracker) *entryStore {
	return &entryStore{
		entries: make(map[string][]LogEntry),
		tracker: tracker,
	}
}

// insert stores an entry, enforcing the channel cap and the global
// budget. Returns false when the entry had to be dropped because one
// eviction pass could not free enough memory.
func (s *entryStore) insert(entry LogEntry, maxEntries int64) bool {
	size := entrySize(&entry)

	if s.tracker.wouldExceed(size) {
		s.trimToBudget(s.tracker.trimTarget())
		// Re-check after the pass, drop rather than loop
		if s.tracker.wouldExceedMargin(size) {
			s.tracker.droppedOverBudget.Add(1)
			return false
		}
	}

	s.mu.Lock()
	channel := entry.Channel
	list := append(s.entries[channel], entry)

	// Channel cap is independent of the global budget
	if maxEntries > 0 && int64(len(list)) > maxEntries {
		excess := int64(len(list)) - maxEntries
		var freed int64
		for i := int64(0); i < excess; i++ {
			freed += entrySize(&list[i])
		}
		list = append(list[:0:0], list[excess:]...)
		s.tracker.remove(channel, freed, excess)
	}

	s.entries[channel] = list
	s.mu.Unlock()

	s.tracker.add(channel, size)
	return true
}

// trimToBudget evicts oldest entries, largest channels first, until
// total usage is at or below target. Runs a single pass.
func (s *entryStore) trimToBudget(target int64) {
	s.tracker.trimmingEvents.Add(1)

	for _, channel := range s.tracker.channelsBySize() {
		if s.tracker.total.Load() <= target {
			return
		}

		need := s.tracker.total.Load() - target
		chanSize := s.tracker.channelUsage(channel)
		if chanSize == 0 {
			continue
		}

		// Trim a larger fraction of a channel when the remaining need
		// is a large share of what the channel holds
		fraction := channelTrimBase
		switch {
		case float64(need) > float64(chanSize)*0.5:
			fraction = channelTrimAggressive
		case float64(need) > float64(chanSize)*0.25:
			fraction = channelTrimModerate
		}

		s.mu.Lock()
		list := s.entries[channel]
		removeCount := int64(float64(len(list)) * fraction)
		if removeCount < 1 && len(list) > 0 {
			removeCount = 1
		}
		if removeCount > int64(len(list)) {
			removeCount = int64(len(list))
		}

		var freed int64
		for i := int64(0); i < removeCount; i++ {
			freed += entrySize(&list[i])
		}
		if removeCount == int64(len(list)) {
			delete(s.entries, channel)
		} else {
			s.entries[channel] = append(list[:0:0], list[removeCount:]...)
		}
		s.mu.Unlock()

		s.tracker.remove(channel, freed, removeCount)
	}
}

// getEntries returns up to max of the most recent entries for a
// channel, oldest first. max <= 0 returns all retained entries.
func (s *entryStore) getEntries(channel string, max int) []LogEntry {
	s.mu.RLock()
	list := s.entries[channel]
	if max > 0 && len(list) > max {
		list = list[len(list)-max:]
	}
	out := make([]LogEntry, len(list))
	copy(out, list)
	s.mu.RUnlock()
	return out
}

// clearChannel discards all retained entries for one channel.
func (s *entryStore) clearChannel(channel string) {
	s.mu.Lock()
	count := int64(len(s.entries[channel]))
	delete(s.entries, channel)
	s.mu.Unlock()
	if count > 0 {
		s.tracker.dropChannel(channel, count)
	}
}

// clearAll discards every retained entry.
func (s *entryStore) clearAll() {
	s.mu.Lock()
	counts := make(map[string]int64, len(s.entries))
	for channel, list := range s.entries {
		counts[channel] = int64(len(list))
	}
	s.entries = make(map[string][]LogEntry)
	s.mu.Unlock()

	for channel, count := range counts {
		s.tracker.dropChannel(channel, count)
	}
}

func (s *entryStore) entryCount(channel string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[channel])
}
