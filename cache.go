// FILE: cache.go
package ulog

import (
	"time"
)

const decisionCacheTTL = 2 * time.Second

type cachedDecision struct {
	enabled    bool
	minLevel   int64
	generation uint64
	fetched    time.Time
}

// DecisionCache is a non-synchronized admission pre-filter. Each
// producer goroutine owns its own instance; sharing one across
// goroutines is a data race. Cached values cover only the enabled and
// severity gates, token consumption always reaches the channel bucket.
//
// Entries are invalidated when the registry generation moves or after a
// short TTL, whichever comes first.
type DecisionCache struct {
	logger  *Logger
	entries map[string]cachedDecision
}

// NewDecisionCache creates a cache bound to a logger's registry.
func (l *Logger) NewDecisionCache() *DecisionCache {
	return &DecisionCache{
		logger:  l,
		entries: make(map[string]cachedDecision),
	}
}

// Log submits a record through the cache. Records rejected by the
// cached gate never touch the registry.
func (c *DecisionCache) Log(channel string, level int64, message string) {
	if !c.mightPass(channel, level) {
		return
	}
	c.logger.Log(channel, level, message)
}

// mightPass reports whether the cached policy would admit the record.
// A stale or missing entry is refreshed from the registry.
func (c *DecisionCache) mightPass(channel string, level int64) bool {
	gen := c.logger.registry.generation.Load()
	now := time.Now()

	if d, ok := c.entries[channel]; ok {
		if d.generation == gen && now.Sub(d.fetched) < decisionCacheTTL {
			return d.enabled && level >= d.minLevel
		}
	}

	cs, ok := c.logger.registry.lookup(channel)
	if !ok {
		// Unknown channels fall through so auto-registration can run
		return true
	}

	enabled, minLevel, _, _, _ := cs.snapshot()
	c.entries[channel] = cachedDecision{
		enabled:    enabled,
		minLevel:   minLevel,
		generation: gen,
		fetched:    now,
	}
	return enabled && level >= minLevel
}

// Invalidate drops all cached entries.
func (c *DecisionCache) Invalidate() {
	clear(c.entries)
}
