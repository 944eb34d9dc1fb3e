// FILE: rotation.go
package ulog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const fileDateLayout = "20060102"

// fileTracker owns log file naming and size-based rotation. Exactly one
// file per channel is active; the writer asks for the active path
// before every append and reports bytes written afterwards.
type fileTracker struct {
	mu     sync.Mutex
	active map[string]*LogFileInfo
	files  map[string]*LogFileInfo

	directory      string
	prefix         string
	extension      string
	maxFileSize    int64
	maxFilesPerDay int64

	totalRotations atomic.Uint64
	rotationSkips  atomic.Uint64
}

func newFileTracker(cfg *Config) *fileTracker {
	return &fileTracker{
		active:         make(map[string]*LogFileInfo),
		files:          make(map[string]*LogFileInfo),
		directory:      cfg.Directory,
		prefix:         cfg.FilePrefix,
		extension:      cfg.Extension,
		maxFileSize:    cfg.Rotation.MaxFileSizeKB * 1024,
		maxFilesPerDay: cfg.Rotation.MaxFilesPerDay,
	}
}

// buildFileName renders the canonical log file name.
func buildFileName(prefix, channel string, date time.Time, index int, extension string) string {
	return fmt.Sprintf("%s_%s_%s_%03d.%s",
		prefix, channelFileComponent(channel), date.Format(fileDateLayout), index, extension)
}

// parseFileName splits a log file name into its components. Returns
// false for names that do not match the scheme or a different prefix.
func parseFileName(name, prefix, extension string) (channel string, date time.Time, index int, ok bool) {
	base := strings.TrimSuffix(name, "."+extension)
	if base == name {
		return "", time.Time{}, 0, false
	}

	parts := strings.Split(base, "_")
	if len(parts) != 4 || parts[0] != prefix {
		return "", time.Time{}, 0, false
	}

	date, err := time.ParseInLocation(fileDateLayout, parts[2], time.Local)
	if err != nil {
		return "", time.Time{}, 0, false
	}

	index, err = strconv.Atoi(parts[3])
	if err != nil || index < 1 {
		return "", time.Time{}, 0, false
	}

	return parts[1], date, index, true
}

// scanExisting picks up files left by a previous run so indices resume
// rather than restart at 001.
func (t *fileTracker) scanExisting() error {
	entries, err := os.ReadDir(t.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmtErrorf("failed to scan log directory: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		channel, date, index, ok := parseFileName(dirEntry.Name(), t.prefix, t.extension)
		if !ok {
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(t.directory, dirEntry.Name())
		fi := &LogFileInfo{
			FilePath:     path,
			Channel:      channel,
			CreationDate: date,
			FileIndex:    index,
			FileSize:     info.Size(),
		}
		t.files[path] = fi

		// Highest index for today becomes the active file
		current := t.active[channel]
		if sameDay(date, time.Now()) && (current == nil || index > current.FileIndex) {
			fi.Active = true
			if current != nil {
				current.Active = false
			}
			t.active[channel] = fi
		}
	}
	return nil
}

// activePathFor returns the path the writer should append to right now,
// rolling to a fresh file on day change or size overflow.
func (t *fileTracker) activePathFor(channel string, now time.Time) string {
	channel = channelFileComponent(channel)
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.active[channel]

	if current != nil && !sameDay(current.CreationDate, now) {
		current = nil
	}

	if current != nil && t.maxFileSize > 0 && current.FileSize >= t.maxFileSize {
		if t.maxFilesPerDay > 0 && int64(current.FileIndex) >= t.maxFilesPerDay {
			// Daily index exhausted, keep appending to the capped file
			t.rotationSkips.Add(1)
			return current.FilePath
		}
		t.openLocked(channel, now, current.FileIndex+1)
		t.totalRotations.Add(1)
		return t.active[channel].FilePath
	}

	if current == nil {
		t.openLocked(channel, now, t.nextIndexLocked(channel, now))
		return t.active[channel].FilePath
	}

	return current.FilePath
}

// forceRotate moves a channel to its next file regardless of size.
func (t *fileTracker) forceRotate(channel string, now time.Time) (string, error) {
	channel = channelFileComponent(channel)
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.nextIndexLocked(channel, now)
	if t.maxFilesPerDay > 0 && int64(next) > t.maxFilesPerDay {
		t.rotationSkips.Add(1)
		return "", fmtErrorf("daily file limit reached for channel %s", channel)
	}

	t.openLocked(channel, now, next)
	t.totalRotations.Add(1)
	return t.active[channel].FilePath, nil
}

// nextIndexLocked finds the next unused index for a channel on the
// given day, consulting both the active file and previously scanned
// files.
func (t *fileTracker) nextIndexLocked(channel string, now time.Time) int {
	highest := 0
	for _, fi := range t.files {
		if fi.Channel == channel && sameDay(fi.CreationDate, now) && fi.FileIndex > highest {
			highest = fi.FileIndex
		}
	}
	if current := t.active[channel]; current != nil && sameDay(current.CreationDate, now) && current.FileIndex > highest {
		highest = current.FileIndex
	}
	return highest + 1
}

func (t *fileTracker) openLocked(channel string, now time.Time, index int) {
	if current := t.active[channel]; current != nil {
		current.Active = false
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	path := filepath.Join(t.directory, buildFileName(t.prefix, channel, now, index, t.extension))
	fi := &LogFileInfo{
		FilePath:     path,
		Channel:      channel,
		CreationDate: day,
		FileIndex:    index,
		Active:       true,
	}
	t.active[channel] = fi
	t.files[path] = fi
}

// addBytes records bytes appended to a path so rotation sees the size
// without a stat call per write.
func (t *fileTracker) addBytes(path string, n int64) {
	t.mu.Lock()
	if fi, ok := t.files[path]; ok {
		fi.FileSize += n
	}
	t.mu.Unlock()
}

// forget drops a deleted file from tracking.
func (t *fileTracker) forget(path string) {
	t.mu.Lock()
	if fi, ok := t.files[path]; ok {
		if fi.Active {
			delete(t.active, fi.Channel)
		}
		delete(t.files, path)
	}
	t.mu.Unlock()
}

// activePaths returns the set of currently active file paths.
func (t *fileTracker) activePaths() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make(map[string]struct{}, len(t.active))
	for _, fi := range t.active {
		paths[fi.FilePath] = struct{}{}
	}
	return paths
}

func (t *fileTracker) trackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
