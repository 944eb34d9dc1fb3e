// FILE: heartbeat.go
package ulog

import (
	"fmt"
	"time"
)

// emitHeartbeat writes a periodic health summary to the Subsystem
// channel. Level 1 covers the queue and memory, level 2 adds file IO
// and rotation. Runs on the processor goroutine, so the record is
// stored and forwarded directly instead of re-entering the queue.
func (l *Logger) emitHeartbeat(level int64) {
	qd := l.QueueDiagnostics()
	md := l.MemoryDiagnostics()

	msg := fmt.Sprintf(
		"heartbeat queue=%d/%d dropped=%d processed=%d mem=%.1f%% entries=%d trims=%d",
		qd.EstimatedSize, l.queue.capacity, qd.Dropped, qd.Processed,
		md.MemoryUsagePercent, md.TotalEntries, md.TrimmingEvents)

	if level >= 2 {
		fd := l.FileIODiagnostics()
		rd := l.RotationDiagnostics()
		msg += fmt.Sprintf(
			" writes=%d failed=%d bytes=%d open=%d rotations=%d deleted=%d",
			fd.Writes, fd.FailedWrites, fd.BytesWritten, fd.OpenFiles,
			rd.TotalRotations, rd.FilesDeleted)
	}

	severity := LevelInfo
	if !l.IsQueueHealthy() || !l.IsMemoryHealthy() {
		severity = LevelWarn
	}

	l.emitInternal(SubsystemChannel, severity, msg)
}

// emitInternal records a pipeline-generated entry from the processor
// goroutine, bypassing the ingestion queue and the rate limiter. The
// target channel is registered on demand so it always carries a cap.
func (l *Logger) emitInternal(channel string, level int64, message string) {
	cfg := l.config()
	if _, ok := l.registry.ensure(channel, true); !ok {
		return
	}
	entry := LogEntry{
		Message:   message,
		Channel:   channel,
		Level:     level,
		Timestamp: time.Now(),
		ThreadID:  goroutineID(),
	}

	l.store.insert(entry, l.registry.maxEntriesFor(channel))

	if cfg.EnableFile {
		path := l.tracker.activePathFor(channel, entry.Timestamp)
		line := l.formatter.appendEntry(nil, &entry)
		l.writer.tryEnqueue(fileWriteEntry{Line: line, FilePath: path, Channel: channel})
	}
	l.processed.Add(1)
}
