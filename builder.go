// FILE: builder.go
package ulog

// Builder provides fluent configuration of a Logger
type Builder struct {
	cfg *Config
	err error
}

// NewBuilder creates a builder starting from defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig starts from an existing configuration.
func (b *Builder) WithConfig(cfg *Config) *Builder {
	if b.err != nil {
		return b
	}
	if cfg == nil {
		b.err = fmtErrorf("nil config")
		return b
	}
	b.cfg = cfg.Clone()
	return b
}

// Directory sets the log file directory.
func (b *Builder) Directory(dir string) *Builder {
	b.cfg.Directory = dir
	return b
}

// FilePrefix sets the log file name prefix.
func (b *Builder) FilePrefix(prefix string) *Builder {
	b.cfg.FilePrefix = prefix
	return b
}

// FileOutput enables or disables file persistence.
func (b *Builder) FileOutput(enabled bool) *Builder {
	b.cfg.EnableFile = enabled
	return b
}

// QueueSize sets the ingestion queue capacity.
func (b *Builder) QueueSize(size int64) *Builder {
	b.cfg.QueueSize = size
	return b
}

// MemoryBudgetMB sets the retained entry budget.
func (b *Builder) MemoryBudgetMB(megabytes int64) *Builder {
	b.cfg.MemoryBudgetMB = megabytes
	return b
}

// RetentionDays sets how long rotated files are kept.
func (b *Builder) RetentionDays(days int64) *Builder {
	b.cfg.Rotation.RetentionDays = days
	return b
}

// MaxFileSizeKB sets the rotation threshold.
func (b *Builder) MaxFileSizeKB(kb int64) *Builder {
	b.cfg.Rotation.MaxFileSizeKB = kb
	return b
}

// DefaultChannelPolicy sets the policy applied to auto-registered
// channels.
func (b *Builder) DefaultChannelPolicy(cc ChannelConfig) *Builder {
	b.cfg.DefaultChannel = cc
	return b
}

// AutoRegister controls on-demand channel registration.
func (b *Builder) AutoRegister(enabled bool) *Builder {
	b.cfg.AutoRegisterChannels = enabled
	return b
}

// Heartbeat configures periodic health reporting.
func (b *Builder) Heartbeat(level, intervalSeconds int64) *Builder {
	b.cfg.HeartbeatLevel = level
	b.cfg.HeartbeatIntervalS = intervalSeconds
	return b
}

// BuildVersion stamps every persisted line with a build identifier.
func (b *Builder) BuildVersion(version string) *Builder {
	b.cfg.Format.IncludeBuildVersion = true
	b.cfg.Format.BuildVersion = version
	return b
}

// CustomField appends a constant key/value pair to every persisted
// line.
func (b *Builder) CustomField(key string, value any) *Builder {
	if b.cfg.Format.CustomFields == nil {
		b.cfg.Format.CustomFields = make(map[string]any)
	}
	b.cfg.Format.CustomFields[key] = value
	return b
}

// InternalErrorsToStderr routes the pipeline's own failures to stderr.
func (b *Builder) InternalErrorsToStderr(enabled bool) *Builder {
	b.cfg.InternalErrorsToStderr = enabled
	return b
}

// Build validates the configuration and returns an unstarted Logger.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewLogger(b.cfg)
}

// Start builds the Logger and starts it.
func (b *Builder) Start() (*Logger, error) {
	logger, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := logger.Start(); err != nil {
		return nil, err
	}
	return logger, nil
}
