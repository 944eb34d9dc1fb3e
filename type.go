// FILE: type.go
package ulog

import (
	"time"
)

// LogEntry is a single retained log record.
type LogEntry struct {
	Message   string
	Channel   string
	Level     int64
	Timestamp time.Time
	ThreadID  uint64
}

// queueEntry is the transient copy handed from a producer goroutine to
// the processor. Consumed exactly once.
type queueEntry struct {
	Message   string
	Channel   string
	Level     int64
	Timestamp time.Time
	ThreadID  uint64
}

// fileWriteEntry is a formatted line in flight to the file writer.
type fileWriteEntry struct {
	Line     []byte
	FilePath string
	Channel  string
}

// LogFileInfo describes one tracked log file. Exactly one file per
// channel is active at any time.
type LogFileInfo struct {
	FilePath     string
	Channel      string
	CreationDate time.Time
	FileIndex    int
	FileSize     int64
	Active       bool
}

// QueueDiagnostics reports ingestion queue counters.
type QueueDiagnostics struct {
	Enqueued      uint64
	Dequeued      uint64
	Processed     uint64
	Dropped       uint64
	EstimatedSize int64
}

// MemoryDiagnostics reports memory budget tracker state.
type MemoryDiagnostics struct {
	TotalMemoryUsed     int64
	MemoryBudget        int64
	TotalEntries        int64
	TrimmingEvents      uint64
	DroppedOverBudget   uint64
	MemoryUsagePercent  float64
	LargestChannelName  string
	LargestChannelUsage int64
}

// FileIODiagnostics reports file writer counters.
type FileIODiagnostics struct {
	Writes       uint64
	FailedWrites uint64
	Batches      uint64
	BytesWritten uint64
	Dropped      uint64
	OpenFiles    int
}

// RotationDiagnostics reports rotation and retention counters.
type RotationDiagnostics struct {
	TotalRotations  uint64
	RotationSkips   uint64
	FilesDeleted    uint64
	BytesFreed      uint64
	TrackedFiles    int
	LastCleanupTime time.Time
}
