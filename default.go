// FILE: default.go
package ulog

// defaultChannelTable is the static registration table applied at
// startup when auto-registration is enabled. Entries without a policy
// override use the configured default policy.
var defaultChannelTable = []struct {
	name     string
	override func(*ChannelConfig)
}{
	{name: "Gameplay"},
	{name: "Network"},
	{name: "Performance", override: func(cc *ChannelConfig) {
		// High-frequency producer, tighter limit
		cc.TokensPerSecond = 10.0
		cc.BurstCapacity = 10
	}},
	{name: "Debug", override: func(cc *ChannelConfig) {
		cc.MinLevel = LevelDebug
	}},
	{name: "AI"},
	{name: "Physics"},
	{name: "Audio"},
	{name: "Animation"},
	{name: "UI"},
	{name: SubsystemChannel, override: func(cc *ChannelConfig) {
		// Diagnostics must not be rate limited or filtered away
		cc.TokensPerSecond = 0
		cc.BurstCapacity = 0
		cc.InheritFromParent = false
	}},
}

// registerDefaultChannels installs the table on top of the given base
// policy. Failures are reported internally and skipped.
func (l *Logger) registerDefaultChannels(base ChannelConfig) {
	for _, entry := range defaultChannelTable {
		cc := base
		if entry.override != nil {
			entry.override(&cc)
		}
		if err := l.registry.Register(entry.name, cc); err != nil {
			l.internalLog("failed to register default channel %s: %v", entry.name, err)
		}
	}
}
