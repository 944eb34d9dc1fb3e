// FILE: processor.go
package ulog

import (
	"fmt"
	"time"
)

// runProcessor is the single consumer of the ingestion queue. It drains
// batches, retains entries under the memory budget, hands formatted
// lines to the file writer, and drives the retention and heartbeat
// timers. Exits after a final drain when the queue closes.
func (l *Logger) runProcessor(cfg *Config) {
	defer l.processorExited.Store(true)

	var retentionC <-chan time.Time
	if cfg.Rotation.CleanupIntervalMins > 0 {
		ticker := time.NewTicker(time.Duration(cfg.Rotation.CleanupIntervalMins) * time.Minute)
		defer ticker.Stop()
		retentionC = ticker.C
	}

	var heartbeatC <-chan time.Time
	if cfg.HeartbeatLevel > 0 {
		ticker := time.NewTicker(time.Duration(cfg.HeartbeatIntervalS) * time.Second)
		defer ticker.Stop()
		heartbeatC = ticker.C
	}

	batchSize := int(cfg.BatchSize)

	for {
		select {
		case e, ok := <-l.queue.ch:
			if !ok {
				return
			}
			l.processBatch(l.drainEntries(e, batchSize), cfg)

		case <-retentionC:
			l.runRetention(time.Now())

		case <-heartbeatC:
			l.emitHeartbeat(cfg.HeartbeatLevel)
		}
	}
}

// drainEntries collects up to batchSize entries already waiting behind
// the first one.
func (l *Logger) drainEntries(first queueEntry, batchSize int) []queueEntry {
	batch := make([]queueEntry, 1, batchSize)
	batch[0] = first
	for len(batch) < batchSize {
		select {
		case e, ok := <-l.queue.ch:
			if !ok {
				return batch
			}
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

// processBatch retains each entry and forwards its formatted line to
// the file writer. Entries whose channel was unregistered while they
// sat in the queue are discarded, and an entry the budget rejects is
// neither retained nor persisted.
func (l *Logger) processBatch(batch []queueEntry, cfg *Config) {
	l.queue.dequeued.Add(uint64(len(batch)))

	for i := range batch {
		entry := LogEntry{
			Message:   batch[i].Message,
			Channel:   batch[i].Channel,
			Level:     batch[i].Level,
			Timestamp: batch[i].Timestamp,
			ThreadID:  batch[i].ThreadID,
		}

		if _, ok := l.registry.lookup(entry.Channel); !ok {
			l.processed.Add(1)
			continue
		}

		if !l.store.insert(entry, l.registry.maxEntriesFor(entry.Channel)) {
			l.emitInternal(SubsystemChannel, LevelCritical,
				fmt.Sprintf("memory budget exceeded, dropped entry on channel %s", entry.Channel))
			l.processed.Add(1)
			continue
		}

		if cfg.EnableFile {
			path := l.tracker.activePathFor(entry.Channel, entry.Timestamp)
			line := l.formatter.appendEntry(nil, &entry)
			l.writer.tryEnqueue(fileWriteEntry{
				Line:     line,
				FilePath: path,
				Channel:  entry.Channel,
			})
		}

		l.processed.Add(1)
	}
}

// runRetention closes stale handles and sweeps expired files.
func (l *Logger) runRetention(now time.Time) {
	l.writer.closeExcept(l.tracker.activePaths())
	if _, err := l.sweeper.sweep(now); err != nil {
		l.internalLog("%v", err)
	}
}
