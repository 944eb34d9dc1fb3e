// FILE: channel_test.go
package ulog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(rate float64, burst int64) *channelState {
	cs := newChannelState("Test", RootChannel, ChannelConfig{})
	cs.applyEffective(true, LevelInfo, rate, burst, 1000)
	return cs
}

func TestTokenBucketBurstThenDeny(t *testing.T) {
	cs := newTestChannel(5, 5)
	now := time.Now()

	// First use primes a full bucket
	for i := 0; i < 5; i++ {
		assert.True(t, cs.canLogAt(LevelInfo, now), "burst record %d", i)
	}
	assert.False(t, cs.canLogAt(LevelInfo, now), "record past burst capacity")
	assert.Equal(t, uint64(1), cs.rateLimitedCount())
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	cs := newTestChannel(5, 5)
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.True(t, cs.canLogAt(LevelInfo, now))
	}
	require.False(t, cs.canLogAt(LevelInfo, now))

	// 400ms at 5/s refills 2 tokens
	later := now.Add(400 * time.Millisecond)
	assert.True(t, cs.canLogAt(LevelInfo, later))
	assert.True(t, cs.canLogAt(LevelInfo, later))
	assert.False(t, cs.canLogAt(LevelInfo, later))
}

func TestTokenBucketRefillClampedToBurst(t *testing.T) {
	cs := newTestChannel(5, 5)
	now := time.Now()

	require.True(t, cs.canLogAt(LevelInfo, now))

	// A long idle period must not bank more than the burst capacity
	later := now.Add(time.Hour)
	admitted := 0
	for i := 0; i < 10; i++ {
		if cs.canLogAt(LevelInfo, later) {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestSeverityGateDoesNotConsumeTokens(t *testing.T) {
	cs := newTestChannel(5, 5)
	now := time.Now()

	// Filtered records leave the bucket untouched
	for i := 0; i < 20; i++ {
		assert.False(t, cs.canLogAt(LevelDebug, now))
	}
	for i := 0; i < 5; i++ {
		assert.True(t, cs.canLogAt(LevelInfo, now))
	}
}

func TestDisabledChannelDeniesWithoutRateCount(t *testing.T) {
	cs := newTestChannel(5, 5)
	cs.applyEffective(false, LevelInfo, 5, 5, 1000)
	now := time.Now()

	assert.False(t, cs.canLogAt(LevelCritical, now))
	assert.Zero(t, cs.rateLimitedCount())
}

func TestZeroRateDisablesLimiting(t *testing.T) {
	cs := newTestChannel(0, 0)
	now := time.Now()

	for i := 0; i < 1000; i++ {
		require.True(t, cs.canLogAt(LevelInfo, now))
	}
}

func TestApplyEffectiveResetsBucket(t *testing.T) {
	cs := newTestChannel(5, 5)
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.True(t, cs.canLogAt(LevelInfo, now))
	}
	require.False(t, cs.canLogAt(LevelInfo, now))

	// New limits take effect immediately with a fresh bucket
	cs.applyEffective(true, LevelInfo, 10, 2, 1000)
	assert.True(t, cs.canLogAt(LevelInfo, now))
	assert.True(t, cs.canLogAt(LevelInfo, now))
	assert.False(t, cs.canLogAt(LevelInfo, now))
}

func TestBurstDefaultsToRate(t *testing.T) {
	cs := newChannelState("Test", RootChannel, ChannelConfig{})
	cs.applyEffective(true, LevelInfo, 8, 0, 1000)

	_, _, _, burst, _ := cs.snapshot()
	assert.Equal(t, 8.0, burst)
}
