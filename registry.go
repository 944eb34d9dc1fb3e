// FILE: registry.go
package ulog

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// channelRegistry owns the channel hierarchy. Structural mutations hold
// the write lock; admission checks only take the read lock plus the
// per-channel mutex inside channelState.
type channelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*channelState
	children map[string]map[string]struct{}

	// Bumped on every mutation, consumed by admission caches
	generation atomic.Uint64

	defaultPolicy ChannelConfig
}

func newChannelRegistry(defaultPolicy ChannelConfig) *channelRegistry {
	r := &channelRegistry{
		channels:      make(map[string]*channelState),
		children:      make(map[string]map[string]struct{}),
		defaultPolicy: defaultPolicy,
	}

	root := newChannelState(RootChannel, "", defaultPolicy)
	r.channels[RootChannel] = root
	r.rebuildLocked(RootChannel)
	r.generation.Add(1)
	return r
}

// Register creates or reconfigures a channel. Dotted names auto-create
// missing ancestors with the default policy. Re-registering an existing
// channel overwrites its declared config and recomputes its subtree.
func (r *channelRegistry) Register(name string, cc ChannelConfig) error {
	if !validChannelName(name) {
		return fmtErrorf("invalid channel name: %q", name)
	}
	if err := validateChannelConfig(cc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[name]; ok {
		existing.setDeclared(cc)
		r.rebuildLocked(name)
		r.generation.Add(1)
		return nil
	}

	r.ensureLineageLocked(name)

	parent, _ := splitChannel(name)
	if parent == "" {
		parent = RootChannel
	}

	cs := newChannelState(name, parent, cc)
	r.channels[name] = cs
	r.linkLocked(parent, name)
	r.rebuildLocked(name)
	r.generation.Add(1)
	return nil
}

// ensureLineageLocked creates any missing ancestors of a dotted name
// with the default policy. The leaf itself is not created.
func (r *channelRegistry) ensureLineageLocked(name string) {
	parent, _ := splitChannel(name)
	if parent == "" {
		return
	}
	if _, ok := r.channels[parent]; !ok {
		r.ensureLineageLocked(parent)

		grand, _ := splitChannel(parent)
		if grand == "" {
			grand = RootChannel
		}
		cs := newChannelState(parent, grand, r.defaultPolicy)
		r.channels[parent] = cs
		r.linkLocked(grand, parent)
		r.rebuildLocked(parent)
	}
}

// Unregister removes a channel. Its children are reparented to the
// removed channel's parent and their subtrees recomputed. The root
// channel cannot be removed.
func (r *channelRegistry) Unregister(name string) error {
	if name == RootChannel {
		return fmtErrorf("cannot unregister root channel %s", RootChannel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.channels[name]
	if !ok {
		return fmtErrorf("channel not registered: %s", name)
	}

	newParent := cs.parent
	for child := range r.children[name] {
		childState := r.channels[child]
		childState.mu.Lock()
		childState.parent = newParent
		childState.mu.Unlock()
		r.linkLocked(newParent, child)
		r.rebuildLocked(child)
	}

	delete(r.children, name)
	r.unlinkLocked(newParent, name)
	delete(r.channels, name)
	r.generation.Add(1)
	return nil
}

// SetEnabled toggles a channel's declared enabled flag. Descendants are
// affected either way through inheritance; the recursive flag
// additionally rewrites their own declared flags, so they stay toggled
// even if reparented later.
func (r *channelRegistry) SetEnabled(name string, enabled, recursive bool) error {
	return r.mutateDeclared(name, recursive, func(cc *ChannelConfig) {
		cc.Enabled = enabled
	})
}

// SetVerbosity updates a channel's minimum severity.
func (r *channelRegistry) SetVerbosity(name string, minLevel int64, recursive bool) error {
	return r.mutateDeclared(name, recursive, func(cc *ChannelConfig) {
		cc.MinLevel = minLevel
	})
}

// UpdateConfig replaces a channel's declared policy.
func (r *channelRegistry) UpdateConfig(name string, cc ChannelConfig) error {
	if err := validateChannelConfig(cc); err != nil {
		return err
	}
	return r.mutateDeclared(name, false, func(dst *ChannelConfig) {
		*dst = cc
	})
}

func (r *channelRegistry) mutateDeclared(name string, recursive bool, fn func(*ChannelConfig)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.channels[name]
	if !ok {
		return fmtErrorf("channel not registered: %s", name)
	}

	apply := func(target *channelState) {
		cc := target.declaredConfig()
		fn(&cc)
		target.setDeclared(cc)
	}

	apply(cs)
	if recursive {
		r.walkSubtreeLocked(name, func(child *channelState) {
			apply(child)
		})
	}

	r.rebuildLocked(name)
	r.generation.Add(1)
	return nil
}

// lookup returns the channel state for admission checks.
func (r *channelRegistry) lookup(name string) (*channelState, bool) {
	r.mu.RLock()
	cs, ok := r.channels[name]
	r.mu.RUnlock()
	return cs, ok
}

// ensure returns the channel, auto-registering it with the default
// policy when allowed.
func (r *channelRegistry) ensure(name string, autoRegister bool) (*channelState, bool) {
	if cs, ok := r.lookup(name); ok {
		return cs, true
	}
	if !autoRegister || !validChannelName(name) {
		return nil, false
	}
	if err := r.Register(name, r.defaultPolicy); err != nil {
		return nil, false
	}
	return r.lookup(name)
}

// canLog is the full admission check: registry lookup plus severity and
// token bucket gating at the given instant.
func (r *channelRegistry) canLog(name string, level int64, now time.Time, autoRegister bool) bool {
	cs, ok := r.ensure(name, autoRegister)
	if !ok {
		return false
	}
	return cs.canLogAt(level, now)
}

// Names returns all registered channel names, sorted.
func (r *channelRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Children returns the direct children of a channel, sorted.
func (r *channelRegistry) Children(name string) []string {
	r.mu.RLock()
	kids := make([]string, 0, len(r.children[name]))
	for child := range r.children[name] {
		kids = append(kids, child)
	}
	r.mu.RUnlock()
	sort.Strings(kids)
	return kids
}

// Parent returns a channel's parent name, empty for the root or an
// unregistered channel.
func (r *channelRegistry) Parent(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.channels[name]
	if !ok {
		return ""
	}
	return cs.parent
}

// Config returns a channel's declared policy.
func (r *channelRegistry) Config(name string) (ChannelConfig, bool) {
	r.mu.RLock()
	cs, ok := r.channels[name]
	r.mu.RUnlock()
	if !ok {
		return ChannelConfig{}, false
	}
	return cs.declaredConfig(), true
}

func (r *channelRegistry) setDefaultPolicy(cc ChannelConfig) {
	r.mu.Lock()
	r.defaultPolicy = cc
	r.mu.Unlock()
	r.generation.Add(1)
}

func (r *channelRegistry) linkLocked(parent, child string) {
	set, ok := r.children[parent]
	if !ok {
		set = make(map[string]struct{})
		r.children[parent] = set
	}
	set[child] = struct{}{}
}

func (r *channelRegistry) unlinkLocked(parent, child string) {
	if set, ok := r.children[parent]; ok {
		delete(set, child)
		if len(set) == 0 {
			delete(r.children, parent)
		}
	}
}

// rebuildLocked recomputes effective policy for a channel and its whole
// subtree. Inheritance rules: enabled is the AND of the lineage, the
// minimum severity is the most restrictive of the lineage, the rate and
// burst come from the nearest ancestor that declares a rate, and the
// entry cap is always the channel's own.
func (r *channelRegistry) rebuildLocked(name string) {
	cs, ok := r.channels[name]
	if !ok {
		return
	}

	declared := cs.declaredConfig()

	enabled := declared.Enabled
	minLevel := declared.MinLevel
	rate := declared.TokensPerSecond
	burst := declared.BurstCapacity

	if declared.InheritFromParent && name != RootChannel {
		if parent, ok := r.channels[cs.parent]; ok {
			pEnabled, pMinLevel, pRate, pBurst, _ := parent.snapshot()
			enabled = enabled && pEnabled
			if pMinLevel > minLevel {
				minLevel = pMinLevel
			}
			if rate <= 0 {
				rate = pRate
				burst = int64(pBurst)
			}
		}
	}

	cs.applyEffective(enabled, minLevel, rate, burst, declared.MaxEntries)

	for child := range r.children[name] {
		r.rebuildLocked(child)
	}
}

// walkSubtreeLocked visits every descendant of a channel.
func (r *channelRegistry) walkSubtreeLocked(name string, fn func(*channelState)) {
	for child := range r.children[name] {
		if cs, ok := r.channels[child]; ok {
			fn(cs)
			r.walkSubtreeLocked(child, fn)
		}
	}
}

// maxEntriesFor reports the effective per-channel retention cap.
func (r *channelRegistry) maxEntriesFor(name string) int64 {
	cs, ok := r.lookup(name)
	if !ok {
		return 0
	}
	_, _, _, _, maxEntries := cs.snapshot()
	return maxEntries
}
