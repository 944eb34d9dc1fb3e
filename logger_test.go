// FILE: logger_test.go
package ulog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, mutate ...func(*Config)) *Logger {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.FilePrefix = "test"
	for _, fn := range mutate {
		fn(cfg)
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NoError(t, logger.Start())
	t.Cleanup(func() { _ = logger.Stop() })
	return logger
}

func waitProcessed(t *testing.T, logger *Logger, want uint64) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if logger.processed.Load() >= want {
			return
		}
		time.Sleep(minWaitTime)
	}
	t.Fatalf("processed %d entries, want at least %d", logger.processed.Load(), want)
}

func TestLoggerLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	require.NoError(t, logger.Start())
	assert.Error(t, logger.Start(), "double start rejected")

	require.NoError(t, logger.Stop())
	require.NoError(t, logger.Stop(), "stop is idempotent")
}

func TestLoggerLogBeforeStartIsDropped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Message("Gameplay", "too early")
	assert.Zero(t, logger.QueueDiagnostics().Enqueued)
}

func TestLoggerLogReachesStore(t *testing.T) {
	logger := newTestLogger(t)

	logger.Message("Gameplay", "player spawned")
	logger.Warning("Gameplay", "low health")
	waitProcessed(t, logger, 2)

	entries := logger.GetEntries("Gameplay", 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "player spawned", entries[0].Message)
	assert.Equal(t, LevelWarn, entries[1].Level)
	assert.NotZero(t, entries[0].ThreadID)
	assert.WithinDuration(t, time.Now(), entries[0].Timestamp, 5*time.Second)
}

func TestLoggerDefaultChannelTableRegistered(t *testing.T) {
	logger := newTestLogger(t)

	names := logger.RegisteredChannels()
	for _, want := range []string{RootChannel, "Gameplay", "Network", "Performance",
		"Debug", "AI", "Physics", "Audio", "Animation", "UI", SubsystemChannel} {
		assert.Contains(t, names, want)
	}
}

func TestLoggerAutoRegisterDisabledDropsUnknown(t *testing.T) {
	logger := newTestLogger(t, func(c *Config) {
		c.AutoRegisterChannels = false
	})

	logger.Message("NeverRegistered", "dropped")
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, logger.GetEntries("NeverRegistered", 0))
	assert.NotContains(t, logger.RegisteredChannels(), "NeverRegistered")
	assert.Zero(t, logger.QueueDiagnostics().Enqueued)
}

func TestLoggerSeverityFiltering(t *testing.T) {
	logger := newTestLogger(t)
	require.NoError(t, logger.SetChannelVerbosity("Gameplay", LevelWarn, false))

	logger.Message("Gameplay", "filtered info")
	logger.Error("Gameplay", "kept error")
	waitProcessed(t, logger, 1)

	entries := logger.GetEntries("Gameplay", 0)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept error", entries[0].Message)
}

func TestLoggerUnregisterClearsEntries(t *testing.T) {
	logger := newTestLogger(t)

	logger.Message("Gameplay", "to be cleared")
	waitProcessed(t, logger, 1)
	require.NotEmpty(t, logger.GetEntries("Gameplay", 0))

	require.NoError(t, logger.UnregisterChannel("Gameplay"))
	assert.Empty(t, logger.GetEntries("Gameplay", 0))
	assert.NotContains(t, logger.RegisteredChannels(), "Gameplay")
}

func TestLoggerClearChannelAndAll(t *testing.T) {
	logger := newTestLogger(t)

	logger.Message("Gameplay", "g")
	logger.Message("Network", "n")
	waitProcessed(t, logger, 2)

	logger.ClearChannel("Gameplay")
	assert.Empty(t, logger.GetEntries("Gameplay", 0))
	assert.NotEmpty(t, logger.GetEntries("Network", 0))

	logger.ClearAll()
	assert.Empty(t, logger.GetEntries("Network", 0))
	assert.Zero(t, logger.MemoryDiagnostics().TotalEntries)
}

func TestLoggerSetMemoryBudget(t *testing.T) {
	logger := newTestLogger(t)

	require.NoError(t, logger.SetMemoryBudget(2))
	assert.Equal(t, int64(2*1024*1024), logger.MemoryDiagnostics().MemoryBudget)
	assert.Error(t, logger.SetMemoryBudget(0))
}

func TestLoggerQueueDiagnosticsCount(t *testing.T) {
	logger := newTestLogger(t, func(c *Config) {
		c.EnableFile = false
	})

	for i := 0; i < 15; i++ {
		logger.Message("Gameplay", "event")
	}
	waitProcessed(t, logger, 5)

	qd := logger.QueueDiagnostics()
	assert.Positive(t, qd.Enqueued)
	assert.LessOrEqual(t, qd.Enqueued, uint64(15), "rate limiter admits at most what was offered")
	assert.Zero(t, qd.Dropped)

	// Backlog drains back to zero once the processor catches up
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && logger.QueueDiagnostics().EstimatedSize > 0 {
		time.Sleep(minWaitTime)
	}
	assert.Zero(t, logger.QueueDiagnostics().EstimatedSize)
}

func TestLoggerApplyConfigStringWhileRunning(t *testing.T) {
	logger := newTestLogger(t)

	logger.Message("Gameplay", "before reconfig")
	waitProcessed(t, logger, 1)

	require.NoError(t, logger.ApplyConfigString(
		"rotation.retention_days=21",
		"queue_size=1024",
	))

	cfg := logger.Config()
	assert.Equal(t, int64(21), cfg.Rotation.RetentionDays)
	assert.Equal(t, int64(1024), cfg.QueueSize)

	// Pipeline keeps working and retained entries survive
	logger.Message("Gameplay", "after reconfig")
	waitProcessed(t, logger, 2)
	entries := logger.GetEntries("Gameplay", 0)
	assert.GreaterOrEqual(t, len(entries), 2)
}

func TestLoggerApplyConfigRejectsInvalid(t *testing.T) {
	logger := newTestLogger(t)

	bad := logger.Config()
	bad.QueueSize = -1
	assert.Error(t, logger.ApplyConfig(bad))

	// Previous config still in effect
	assert.Equal(t, DefaultConfig().QueueSize, logger.Config().QueueSize)
}

func TestLoggerHeartbeatEmission(t *testing.T) {
	logger := newTestLogger(t, func(c *Config) {
		c.HeartbeatLevel = 2
		c.HeartbeatIntervalS = 1
		c.EnableFile = false
	})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(logger.GetEntries(SubsystemChannel, 0)) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	entries := logger.GetEntries(SubsystemChannel, 0)
	require.NotEmpty(t, entries, "heartbeat record expected on the Subsystem channel")
	assert.Contains(t, entries[0].Message, "heartbeat")
	assert.Contains(t, entries[0].Message, "writes=", "level 2 includes file IO counters")
}

func TestLoggerShutdownZeroTimeoutWithBacklog(t *testing.T) {
	logger := newTestLogger(t, func(c *Config) {
		c.DefaultChannel.TokensPerSecond = 0
		c.DefaultChannel.BurstCapacity = 0
		c.DefaultChannel.MaxEntries = 10_000
	})

	for i := 0; i < 5000; i++ {
		logger.Message("Gameplay", "backlog entry")
	}

	// An expired deadline must degrade to dropped writes, never a panic
	assert.NotPanics(t, func() {
		_ = logger.Shutdown(0)
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) &&
		(!logger.processorExited.Load() || !logger.writer.exited.Load()) {
		time.Sleep(minWaitTime)
	}
	assert.True(t, logger.processorExited.Load())
	assert.True(t, logger.writer.exited.Load())

	// Records offered after shutdown are dropped
	logger.Message("Gameplay", "after shutdown")
	var msgs []string
	for _, e := range logger.GetEntries("Gameplay", 0) {
		msgs = append(msgs, e.Message)
	}
	assert.NotContains(t, msgs, "after shutdown")
}

func TestLoggerUnregisterDiscardsQueuedBacklog(t *testing.T) {
	logger := newTestLogger(t, func(c *Config) {
		c.EnableFile = false
		c.AutoRegisterChannels = false
	})

	require.NoError(t, logger.RegisterChannel("Transient", ChannelConfig{
		Enabled:           true,
		MinLevel:          LevelInfo,
		TokensPerSecond:   0,
		BurstCapacity:     0,
		MaxEntries:        10,
		InheritFromParent: false,
	}))

	for i := 0; i < 500; i++ {
		logger.Message("Transient", "queued")
	}
	require.NoError(t, logger.UnregisterChannel("Transient"))

	waitProcessed(t, logger, 500)

	// Backlog processed after the unregister must not resurrect the
	// channel in the store
	assert.Empty(t, logger.GetEntries("Transient", 0))
	assert.NotContains(t, logger.RegisteredChannels(), "Transient")
	assert.Zero(t, logger.MemoryDiagnostics().TotalEntries)
}

func TestLoggerHealthIndicators(t *testing.T) {
	logger := newTestLogger(t)
	assert.True(t, logger.IsQueueHealthy())
	assert.True(t, logger.IsMemoryHealthy())
}

func TestBuilderConfiguresLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewBuilder().
		Directory(dir).
		FilePrefix("built").
		QueueSize(256).
		MemoryBudgetMB(5).
		RetentionDays(3).
		BuildVersion("2.0.1").
		CustomField("region", "eu").
		Build()
	require.NoError(t, err)

	cfg := logger.Config()
	assert.Equal(t, dir, cfg.Directory)
	assert.Equal(t, "built", cfg.FilePrefix)
	assert.Equal(t, int64(256), cfg.QueueSize)
	assert.Equal(t, int64(5), cfg.MemoryBudgetMB)
	assert.Equal(t, int64(3), cfg.Rotation.RetentionDays)
	assert.True(t, cfg.Format.IncludeBuildVersion)
	assert.Equal(t, "eu", cfg.Format.CustomFields["region"])
}
