// FILE: cache_test.go
package ulog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := NewBuilder().
		FileOutput(false).
		AutoRegister(false).
		Build()
	require.NoError(t, err)
	require.NoError(t, logger.Start())
	t.Cleanup(func() { _ = logger.Stop() })
	return logger
}

func TestDecisionCacheFiltersDisabledChannel(t *testing.T) {
	logger := newCacheTestLogger(t)
	require.NoError(t, logger.RegisterChannel("Gameplay", testPolicy()))
	require.NoError(t, logger.SetChannelEnabled("Gameplay", false, false))

	cache := logger.NewDecisionCache()
	assert.False(t, cache.mightPass("Gameplay", LevelInfo))
}

func TestDecisionCacheInvalidatedByGenerationBump(t *testing.T) {
	logger := newCacheTestLogger(t)
	require.NoError(t, logger.RegisterChannel("Gameplay", testPolicy()))

	cache := logger.NewDecisionCache()
	require.True(t, cache.mightPass("Gameplay", LevelInfo))

	// Registry mutation moves the generation, the stale verdict must
	// not survive it
	require.NoError(t, logger.SetChannelVerbosity("Gameplay", LevelError, false))
	assert.False(t, cache.mightPass("Gameplay", LevelInfo))
	assert.True(t, cache.mightPass("Gameplay", LevelError))
}

func TestDecisionCachePassesUnknownChannelsThrough(t *testing.T) {
	logger := newCacheTestLogger(t)
	cache := logger.NewDecisionCache()

	// Unknown channel defers the verdict to the registry path
	assert.True(t, cache.mightPass("Unseen", LevelInfo))
}

func TestDecisionCacheInvalidate(t *testing.T) {
	logger := newCacheTestLogger(t)
	require.NoError(t, logger.RegisterChannel("Gameplay", testPolicy()))

	cache := logger.NewDecisionCache()
	require.True(t, cache.mightPass("Gameplay", LevelInfo))
	require.NotEmpty(t, cache.entries)

	cache.Invalidate()
	assert.Empty(t, cache.entries)
}
