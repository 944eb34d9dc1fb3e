// FILE: logger.go
package ulog

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging pipeline instance. All state is owned by the
// instance, nothing package-global, so independent pipelines can
// coexist in one process.
//
// The hot path never blocks and never returns an error to the caller.
// Overload is absorbed by dropping records and counting the drops.
type Logger struct {
	mu      sync.Mutex
	started atomic.Bool

	cfg atomic.Value // *Config

	registry *channelRegistry
	memory   *memoryTracker
	store    *entryStore

	queue     *ingestQueue
	writer    *fileWriter
	tracker   *fileTracker
	sweeper   *retentionSweeper
	formatter *formatter

	processed       atomic.Uint64
	processorExited atomic.Bool
}

// NewLogger creates an unstarted pipeline from a validated config.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	l := &Logger{
		registry: newChannelRegistry(cfg.DefaultChannel),
		memory:   newMemoryTracker(cfg.MemoryBudgetMB * 1024 * 1024),
	}
	l.store = newEntryStore(l.memory)
	l.cfg.Store(cfg)
	l.buildWorkers(cfg)
	l.processorExited.Store(true)
	l.writer.exited.Store(true)
	return l, nil
}

// buildWorkers constructs the config-sized components. Called before
// start and again on reconfiguration.
func (l *Logger) buildWorkers(cfg *Config) {
	l.queue = newIngestQueue(cfg.QueueSize)
	l.tracker = newFileTracker(cfg)
	l.sweeper = newRetentionSweeper(cfg, l.tracker)
	l.writer = newFileWriter(cfg, l.tracker, l.internalLog)
	l.formatter = newFormatter(cfg.Format)
}

// Start launches the processor and file writer goroutines. Registers
// the default channel table when auto-registration is on, resumes file
// indices from disk, and optionally runs the startup retention sweep.
func (l *Logger) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startLocked()
}

func (l *Logger) startLocked() error {
	if l.started.Load() {
		return fmtErrorf("already started")
	}
	cfg := l.config()

	if cfg.AutoRegisterChannels {
		l.registerDefaultChannels(cfg.DefaultChannel)
	}

	if cfg.EnableFile {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return fmtErrorf("failed to create log directory: %w", err)
		}
		if err := l.tracker.scanExisting(); err != nil {
			l.internalLog("%v", err)
		}
		if cfg.Rotation.CleanupOnStartup {
			if _, err := l.sweeper.sweep(time.Now()); err != nil {
				l.internalLog("%v", err)
			}
		}
	}

	l.processorExited.Store(false)
	l.writer.exited.Store(false)
	go l.runProcessor(cfg)
	go l.writer.run()

	l.started.Store(true)
	return nil
}

// Stop shuts the pipeline down, draining both queues. Records logged
// after Stop returns are dropped.
func (l *Logger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(5 * time.Second)
}

// Shutdown is Stop with a caller-chosen drain deadline.
func (l *Logger) Shutdown(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(timeout)
}

func (l *Logger) stopLocked(timeout time.Duration) error {
	if !l.started.Load() {
		return nil
	}
	l.started.Store(false)

	deadline := time.Now().Add(timeout)

	l.queue.close()
	procErr := l.awaitFlag(&l.processorExited, deadline, "processor")

	// The writer channel closes under a possibly still-draining
	// processor when the deadline was missed; its forwards then land on
	// the tryEnqueue recover path and count as drops.
	close(l.writer.ch)
	writeErr := l.awaitFlag(&l.writer.exited, deadline, "file writer")

	return combineErrors(procErr, writeErr)
}

// awaitFlag polls an exit flag until it is set or the deadline passes.
func (l *Logger) awaitFlag(flag *atomic.Bool, deadline time.Time, name string) error {
	for !flag.Load() {
		if time.Now().After(deadline) {
			return fmtErrorf("%s did not exit before deadline", name)
		}
		time.Sleep(minWaitTime)
	}
	return nil
}

// Log submits one record. Non-blocking: the record is dropped when the
// channel gate, the rate limiter, or a full queue rejects it.
func (l *Logger) Log(channel string, level int64, message string) {
	if !l.started.Load() {
		return
	}
	// A send can race a concurrent Stop closing the queue
	defer func() { _ = recover() }()
	cfg := l.config()
	now := time.Now()

	if !l.registry.canLog(channel, level, now, cfg.AutoRegisterChannels) {
		return
	}

	l.queue.tryEnqueue(queueEntry{
		Message:   message,
		Channel:   channel,
		Level:     level,
		Timestamp: now,
		ThreadID:  goroutineID(),
	})
}

// Logf submits a formatted record.
func (l *Logger) Logf(channel string, level int64, format string, args ...any) {
	if !l.started.Load() {
		return
	}
	l.Log(channel, level, fmt.Sprintf(format, args...))
}

// Message logs at info level.
func (l *Logger) Message(channel, message string) { l.Log(channel, LevelInfo, message) }

// Debug logs at debug level.
func (l *Logger) Debug(channel, message string) { l.Log(channel, LevelDebug, message) }

// Warning logs at warn level.
func (l *Logger) Warning(channel, message string) { l.Log(channel, LevelWarn, message) }

// Error logs at error level.
func (l *Logger) Error(channel, message string) { l.Log(channel, LevelError, message) }

// Critical logs at critical level.
func (l *Logger) Critical(channel, message string) { l.Log(channel, LevelCritical, message) }

// RegisterChannel creates or reconfigures a channel.
func (l *Logger) RegisterChannel(name string, cc ChannelConfig) error {
	return l.registry.Register(name, cc)
}

// UnregisterChannel removes a channel, reparenting its children. The
// channel's retained entries are cleared; its files stay on disk until
// retention expires them.
func (l *Logger) UnregisterChannel(name string) error {
	if err := l.registry.Unregister(name); err != nil {
		return err
	}
	l.store.clearChannel(name)
	return nil
}

// SetChannelEnabled toggles a channel, optionally its subtree.
func (l *Logger) SetChannelEnabled(name string, enabled, recursive bool) error {
	return l.registry.SetEnabled(name, enabled, recursive)
}

// SetChannelVerbosity sets a channel's minimum severity.
func (l *Logger) SetChannelVerbosity(name string, minLevel int64, recursive bool) error {
	return l.registry.SetVerbosity(name, minLevel, recursive)
}

// UpdateChannelConfig replaces a channel's declared policy.
func (l *Logger) UpdateChannelConfig(name string, cc ChannelConfig) error {
	return l.registry.UpdateConfig(name, cc)
}

// GetChannelConfig returns a channel's declared policy.
func (l *Logger) GetChannelConfig(name string) (ChannelConfig, bool) {
	return l.registry.Config(name)
}

// RegisteredChannels lists all channel names, sorted.
func (l *Logger) RegisteredChannels() []string {
	return l.registry.Names()
}

// ChildChannels lists a channel's direct children, sorted.
func (l *Logger) ChildChannels(name string) []string {
	return l.registry.Children(name)
}

// ParentChannel returns a channel's parent, empty for the root.
func (l *Logger) ParentChannel(name string) string {
	return l.registry.Parent(name)
}

// ChannelRateLimited reports how many records a channel's rate limiter
// has rejected.
func (l *Logger) ChannelRateLimited(name string) uint64 {
	cs, ok := l.registry.lookup(name)
	if !ok {
		return 0
	}
	return cs.rateLimitedCount()
}

// GetEntries returns up to max recent retained entries for a channel,
// oldest first.
func (l *Logger) GetEntries(channel string, max int) []LogEntry {
	return l.store.getEntries(channel, max)
}

// ClearChannel discards a channel's retained entries.
func (l *Logger) ClearChannel(channel string) {
	l.store.clearChannel(channel)
}

// ClearAll discards all retained entries.
func (l *Logger) ClearAll() {
	l.store.clearAll()
}

// ForceRotate rolls a channel to its next file.
func (l *Logger) ForceRotate(channel string) error {
	_, err := l.tracker.forceRotate(channel, time.Now())
	return err
}

// ForceRetentionCleanup runs a retention sweep immediately.
func (l *Logger) ForceRetentionCleanup() (int, error) {
	l.writer.closeExcept(l.tracker.activePaths())
	return l.sweeper.sweep(time.Now())
}

// SetMemoryBudget replaces the memory budget at runtime. A shrunken
// budget takes effect at the next insertion's eviction check.
func (l *Logger) SetMemoryBudget(megabytes int64) error {
	if megabytes <= 0 {
		return fmtErrorf("memory budget must be positive: %d", megabytes)
	}
	l.memory.budget.Store(megabytes * 1024 * 1024)
	return nil
}

// QueueDiagnostics reports ingestion queue counters.
func (l *Logger) QueueDiagnostics() QueueDiagnostics {
	return QueueDiagnostics{
		Enqueued:      l.queue.enqueued.Load(),
		Dequeued:      l.queue.dequeued.Load(),
		Processed:     l.processed.Load(),
		Dropped:       l.queue.dropped.Load(),
		EstimatedSize: l.queue.estimatedSize(),
	}
}

// MemoryDiagnostics reports memory tracker state.
func (l *Logger) MemoryDiagnostics() MemoryDiagnostics {
	return l.memory.diagnostics()
}

// FileIODiagnostics reports file writer counters.
func (l *Logger) FileIODiagnostics() FileIODiagnostics {
	return l.writer.diagnostics()
}

// RotationDiagnostics reports rotation and retention counters.
func (l *Logger) RotationDiagnostics() RotationDiagnostics {
	return RotationDiagnostics{
		TotalRotations:  l.tracker.totalRotations.Load(),
		RotationSkips:   l.tracker.rotationSkips.Load(),
		FilesDeleted:    l.sweeper.filesDeleted.Load(),
		BytesFreed:      l.sweeper.bytesFreed.Load(),
		TrackedFiles:    l.tracker.trackedCount(),
		LastCleanupTime: l.sweeper.lastCleanupTime(),
	}
}

// IsQueueHealthy reports whether the queue backlog is under 80%.
func (l *Logger) IsQueueHealthy() bool { return l.queue.healthy() }

// IsMemoryHealthy reports whether memory usage is under 90% of budget.
func (l *Logger) IsMemoryHealthy() bool { return l.memory.healthy() }

// ApplyConfig replaces the configuration. The pipeline is restarted
// when it was running; registered channels and retained entries
// survive. On validation failure the previous config stays in effect.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	wasRunning := l.started.Load()
	if wasRunning {
		if err := l.stopLocked(5 * time.Second); err != nil {
			l.internalLog("%v", err)
		}
	}

	l.cfg.Store(cfg)
	l.memory.budget.Store(cfg.MemoryBudgetMB * 1024 * 1024)
	l.registry.setDefaultPolicy(cfg.DefaultChannel)
	l.buildWorkers(cfg)
	l.processorExited.Store(true)
	l.writer.exited.Store(true)

	if wasRunning {
		return l.startLocked()
	}
	return nil
}

// Config returns a copy of the current configuration.
func (l *Logger) Config() *Config {
	return l.config().Clone()
}

func (l *Logger) config() *Config {
	return l.cfg.Load().(*Config)
}

// internalLog reports the pipeline's own failures to stderr when the
// config enables it. Never panics, never blocks on the pipeline.
func (l *Logger) internalLog(format string, args ...any) {
	cfg, ok := l.cfg.Load().(*Config)
	if !ok || !cfg.InternalErrorsToStderr {
		return
	}
	fmt.Fprintf(os.Stderr, "ulog: "+format+"\n", args...)
}
