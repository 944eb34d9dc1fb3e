// FILE: retention.go
package ulog

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// retentionSweeper deletes log files whose embedded date falls outside
// the retention window. Deletion failures are reported and skipped so
// one undeletable file never stalls the sweep.
type retentionSweeper struct {
	directory     string
	prefix        string
	extension     string
	retentionDays int64

	tracker *fileTracker

	filesDeleted atomic.Uint64
	bytesFreed   atomic.Uint64

	mu          sync.Mutex
	lastCleanup time.Time
}

func newRetentionSweeper(cfg *Config, tracker *fileTracker) *retentionSweeper {
	return &retentionSweeper{
		directory:     cfg.Directory,
		prefix:        cfg.FilePrefix,
		extension:     cfg.Extension,
		retentionDays: cfg.Rotation.RetentionDays,
		tracker:       tracker,
	}
}

// sweep deletes expired files relative to now. Returns the number of
// files removed and the first error encountered, if any.
func (r *retentionSweeper) sweep(now time.Time) (int, error) {
	r.mu.Lock()
	r.lastCleanup = now
	r.mu.Unlock()

	if r.retentionDays <= 0 {
		return 0, nil
	}

	// Compare day to day: a file dated exactly retentionDays ago is kept
	cutoff := now.AddDate(0, 0, -int(r.retentionDays))
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	entries, err := os.ReadDir(r.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmtErrorf("retention sweep failed to read directory: %w", err)
	}

	deleted := 0
	var firstErr error
	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		_, date, _, ok := parseFileName(dirEntry.Name(), r.prefix, r.extension)
		if !ok || !date.Before(cutoff) {
			continue
		}

		path := filepath.Join(r.directory, dirEntry.Name())

		var size int64
		if info, err := dirEntry.Info(); err == nil {
			size = info.Size()
		}

		if err := os.Remove(path); err != nil {
			if firstErr == nil {
				firstErr = fmtErrorf("retention sweep failed to delete %s: %w", path, err)
			}
			continue
		}

		r.tracker.forget(path)
		r.filesDeleted.Add(1)
		r.bytesFreed.Add(uint64(size))
		deleted++
	}

	return deleted, firstErr
}

func (r *retentionSweeper) lastCleanupTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCleanup
}
