// FILE: filewriter.go
package ulog

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// fileWriter appends formatted lines to disk on its own goroutine.
// Producers hand over finished lines through a bounded channel; a full
// channel drops the line and bumps a counter.
type fileWriter struct {
	ch chan fileWriteEntry

	directory     string
	flushInterval time.Duration

	tracker *fileTracker

	handleMu sync.Mutex
	handles  map[string]*os.File

	writes       atomic.Uint64
	failedWrites atomic.Uint64
	batches      atomic.Uint64
	bytesWritten atomic.Uint64
	dropped      atomic.Uint64

	exited   atomic.Bool
	internal func(format string, args ...any)
}

func newFileWriter(cfg *Config, tracker *fileTracker, internal func(string, ...any)) *fileWriter {
	return &fileWriter{
		ch:            make(chan fileWriteEntry, cfg.WriteQueueSize),
		directory:     cfg.Directory,
		flushInterval: time.Duration(cfg.FlushIntervalSec) * time.Second,
		tracker:       tracker,
		handles:       make(map[string]*os.File),
		internal:      internal,
	}
}

// tryEnqueue offers a line without blocking. A send racing shutdown can
// hit the closed channel; that line is dropped like any other overflow.
func (w *fileWriter) tryEnqueue(e fileWriteEntry) (ok bool) {
	defer func() {
		if recover() != nil {
			w.dropped.Add(1)
			ok = false
		}
	}()
	select {
	case w.ch <- e:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// run is the writer loop. Exits after draining when the channel closes.
func (w *fileWriter) run() {
	defer w.exited.Store(true)
	defer w.closeAll()

	flushTicker := time.NewTicker(w.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case first, ok := <-w.ch:
			if !ok {
				return
			}
			w.writeBatch(w.drainBatch(first))

		case <-flushTicker.C:
			w.syncAll()
		}
	}
}

// drainBatch greedily collects whatever is queued behind the first
// entry so one disk pass covers the backlog.
func (w *fileWriter) drainBatch(first fileWriteEntry) []fileWriteEntry {
	batch := []fileWriteEntry{first}
	for {
		select {
		case e, ok := <-w.ch:
			if !ok {
				return batch
			}
			batch = append(batch, e)
			if len(batch) >= defaultBatchSize {
				return batch
			}
		default:
			return batch
		}
	}
}

// writeBatch groups lines by destination path and performs a single
// append per path.
func (w *fileWriter) writeBatch(batch []fileWriteEntry) {
	if len(batch) == 0 {
		return
	}
	w.batches.Add(1)

	byPath := make(map[string][]byte)
	order := make([]string, 0, 4)
	for i := range batch {
		path := batch[i].FilePath
		if _, seen := byPath[path]; !seen {
			order = append(order, path)
		}
		byPath[path] = append(byPath[path], batch[i].Line...)
	}

	for _, path := range order {
		data := byPath[path]
		handle, err := w.handleFor(path)
		if err != nil {
			w.failedWrites.Add(uint64(countLines(data)))
			w.internal("failed to open log file %s: %v", path, err)
			continue
		}

		n, err := handle.Write(data)
		if err != nil {
			w.failedWrites.Add(uint64(countLines(data)))
			w.internal("failed to write log file %s: %v", path, err)
			w.dropHandle(path)
			continue
		}

		w.writes.Add(uint64(countLines(data)))
		w.bytesWritten.Add(uint64(n))
		w.tracker.addBytes(path, int64(n))
	}
}

// handleFor returns a cached handle, opening the file in append mode on
// first use.
func (w *fileWriter) handleFor(path string) (*os.File, error) {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()

	if handle, ok := w.handles[path]; ok {
		return handle, nil
	}

	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return nil, err
	}

	handle, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w.handles[path] = handle
	return handle, nil
}

func (w *fileWriter) dropHandle(path string) {
	w.handleMu.Lock()
	if handle, ok := w.handles[path]; ok {
		handle.Close()
		delete(w.handles, path)
	}
	w.handleMu.Unlock()
}

func (w *fileWriter) syncAll() {
	w.handleMu.Lock()
	for _, handle := range w.handles {
		handle.Sync()
	}
	w.handleMu.Unlock()
}

func (w *fileWriter) closeAll() {
	w.handleMu.Lock()
	for path, handle := range w.handles {
		handle.Sync()
		handle.Close()
		delete(w.handles, path)
	}
	w.handleMu.Unlock()
}

// closeExcept closes cached handles for paths outside the keep set.
// Run before a retention sweep so deletes are not blocked by open
// handles on platforms that refuse them.
func (w *fileWriter) closeExcept(keep map[string]struct{}) {
	w.handleMu.Lock()
	for path, handle := range w.handles {
		if _, ok := keep[path]; ok {
			continue
		}
		handle.Sync()
		handle.Close()
		delete(w.handles, path)
	}
	w.handleMu.Unlock()
}

func (w *fileWriter) openFileCount() int {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	return len(w.handles)
}

func (w *fileWriter) diagnostics() FileIODiagnostics {
	return FileIODiagnostics{
		Writes:       w.writes.Load(),
		FailedWrites: w.failedWrites.Load(),
		Batches:      w.batches.Load(),
		BytesWritten: w.bytesWritten.Load(),
		Dropped:      w.dropped.Load(),
		OpenFiles:    w.openFileCount(),
	}
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
