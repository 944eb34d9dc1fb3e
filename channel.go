// FILE: channel.go
package ulog

import (
	"sync"
	"time"
)

// channelState holds the declared and effective policy for one channel
// plus its token bucket. Effective values are recomputed by the registry
// whenever the channel or an ancestor changes.
type channelState struct {
	mu sync.Mutex

	name   string
	parent string

	// Declared policy as registered
	declared ChannelConfig

	// Effective policy after inheritance
	enabled    bool
	minLevel   int64
	rate       float64
	burst      float64
	maxEntries int64

	// Token bucket. tokens is valid only after the first refill.
	tokens     float64
	lastRefill time.Time
	primed     bool

	rateLimited uint64
}

func newChannelState(name, parent string, declared ChannelConfig) *channelState {
	return &channelState{
		name:     name,
		parent:   parent,
		declared: declared,
	}
}

// canLogAt decides admission for a single record at the given instant.
// Severity gating happens first so disabled or filtered records never
// consume tokens.
func (cs *channelState) canLogAt(level int64, now time.Time) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.enabled || level < cs.minLevel {
		return false
	}

	// Rate zero disables limiting for this channel
	if cs.rate <= 0 {
		return true
	}

	if !cs.primed {
		// First use starts with a full bucket
		cs.tokens = cs.burst
		cs.lastRefill = now
		cs.primed = true
	} else {
		elapsed := now.Sub(cs.lastRefill).Seconds()
		if elapsed > 0 {
			cs.tokens += elapsed * cs.rate
			if cs.tokens > cs.burst {
				cs.tokens = cs.burst
			}
			cs.lastRefill = now
		}
	}

	if cs.tokens >= 1.0 {
		cs.tokens -= 1.0
		return true
	}

	cs.rateLimited++
	return false
}

// applyEffective installs recomputed effective values and resets the
// bucket so new limits take effect immediately.
func (cs *channelState) applyEffective(enabled bool, minLevel int64, rate float64, burst int64, maxEntries int64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.enabled = enabled
	cs.minLevel = minLevel
	cs.rate = rate
	cs.burst = float64(burst)
	if cs.burst <= 0 && rate > 0 {
		// Burst unset falls back to one second of refill
		cs.burst = rate
	}
	cs.maxEntries = maxEntries
	cs.primed = false
}

// snapshot returns the effective policy without holding the lock across
// caller logic.
func (cs *channelState) snapshot() (enabled bool, minLevel int64, rate float64, burst float64, maxEntries int64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.enabled, cs.minLevel, cs.rate, cs.burst, cs.maxEntries
}

func (cs *channelState) rateLimitedCount() uint64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.rateLimited
}

func (cs *channelState) declaredConfig() ChannelConfig {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.declared
}

func (cs *channelState) setDeclared(cc ChannelConfig) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.declared = cc
}
