// FILE: config.go
package ulog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lixenwraith/config"
)

// ChannelConfig is the declared policy for one channel. Effective values
// after inheritance live in the registry's channel state, not here.
type ChannelConfig struct {
	Enabled           bool    `toml:"enabled"`
	MinLevel          int64   `toml:"min_level"`
	TokensPerSecond   float64 `toml:"tokens_per_second"`
	BurstCapacity     int64   `toml:"burst_capacity"`
	MaxEntries        int64   `toml:"max_entries"`
	InheritFromParent bool    `toml:"inherit_from_parent"`
}

// RotationConfig controls size-based rotation and age-based retention.
type RotationConfig struct {
	MaxFileSizeKB       int64 `toml:"max_file_size_kb"`
	RetentionDays       int64 `toml:"retention_days"`
	MaxFilesPerDay      int64 `toml:"max_files_per_day"`
	CleanupIntervalMins int64 `toml:"cleanup_interval_mins"`
	CleanupOnStartup    bool  `toml:"cleanup_on_startup"`
}

// FormatConfig controls the persisted NDJSON line layout.
type FormatConfig struct {
	IncludeSessionID    bool   `toml:"include_session_id"`
	IncludeBuildVersion bool   `toml:"include_build_version"`
	BuildVersion        string `toml:"build_version"`

	// Extra key/value pairs appended to every line. Values of arbitrary
	// type are rendered with spew when not JSON-marshalable.
	CustomFields map[string]any `toml:"-"`
}

// Config holds all pipeline configuration values
type Config struct {
	// Basic settings
	Directory  string `toml:"directory"`
	FilePrefix string `toml:"file_prefix"`
	Extension  string `toml:"extension"`
	EnableFile bool   `toml:"enable_file"`

	// Queue and batch sizing
	QueueSize      int64 `toml:"queue_size"`
	WriteQueueSize int64 `toml:"write_queue_size"`
	BatchSize      int64 `toml:"batch_size"`

	// Memory budget
	MemoryBudgetMB int64 `toml:"memory_budget_mb"`

	// File writer
	FlushIntervalSec int64 `toml:"flush_interval_sec"`

	// Rotation and retention
	Rotation RotationConfig `toml:"rotation"`

	// Persisted format
	Format FormatConfig `toml:"format"`

	// Default channel policy, applied to auto-registered channels
	DefaultChannel       ChannelConfig `toml:"default_channel"`
	AutoRegisterChannels bool          `toml:"auto_register_channels"`

	// Heartbeat: 0=disabled, 1=queue/memory, 2=adds file IO and rotation
	HeartbeatLevel     int64 `toml:"heartbeat_level"`
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"`

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Directory:  "./logs",
	FilePrefix: "ulog",
	Extension:  "json",
	EnableFile: true,

	QueueSize:      8192,
	WriteQueueSize: 4096,
	BatchSize:      defaultBatchSize,

	MemoryBudgetMB: 50,

	FlushIntervalSec: 5,

	Rotation: RotationConfig{
		MaxFileSizeKB:       10 * 1024,
		RetentionDays:       7,
		MaxFilesPerDay:      100,
		CleanupIntervalMins: 60,
		CleanupOnStartup:    true,
	},

	Format: FormatConfig{
		IncludeSessionID:    true,
		IncludeBuildVersion: false,
	},

	DefaultChannel: ChannelConfig{
		Enabled:           true,
		MinLevel:          LevelInfo,
		TokensPerSecond:   20.0,
		BurstCapacity:     20,
		MaxEntries:        1000,
		InheritFromParent: true,
	},
	AutoRegisterChannels: true,

	HeartbeatLevel:     0,
	HeartbeatIntervalS: 60,

	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// DefaultChannelConfig returns a copy of the default channel policy.
func DefaultChannelConfig() ChannelConfig {
	return defaultConfig.DefaultChannel
}

// NewConfigFromFile loads configuration from a TOML file and returns a
// validated Config
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct("ulog.", *cfg); err != nil {
		return nil, fmt.Errorf("failed to register config struct: %w", err)
	}

	// Load from file (handles file not found gracefully)
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "ulog.", cfg); err != nil {
		return nil, fmt.Errorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	return extractStruct(loader, prefix, reflect.ValueOf(cfg).Elem())
}

// extractStruct walks a struct recursively, resolving nested sections as
// dotted key prefixes.
func extractStruct(loader *config.Config, prefix string, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" || tomlTag == "-" {
			continue
		}

		if fieldValue.Kind() == reflect.Struct {
			if err := extractStruct(loader, prefix+tomlTag+".", fieldValue); err != nil {
				return err
			}
			continue
		}

		key := prefix + tomlTag
		val, found := loader.Get(key)
		if !found {
			continue // Use default value
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of dotted-key overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	for key, value := range overrides {
		fieldValue, err := resolveConfigField(cfg, key)
		if err != nil {
			return err
		}
		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// resolveConfigField locates the struct field addressed by a dotted toml
// key ("rotation.retention_days").
func resolveConfigField(cfg *Config, key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(cfg).Elem()

	for depth, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmtErrorf("unknown config key: %s", key)
		}
		t := v.Type()
		found := false
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get("toml") == part {
				v = v.Field(i)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, fmtErrorf("unknown config key: %s", key)
		}
		if depth == len(parts)-1 && v.Kind() == reflect.Struct {
			return reflect.Value{}, fmtErrorf("config key %s addresses a section, not a value", key)
		}
	}
	return v, nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Float64:
		switch v := value.(type) {
		case float64:
			field.SetFloat(v)
		case int64:
			field.SetFloat(float64(v))
		case int:
			field.SetFloat(float64(v))
		default:
			return fmt.Errorf("expected float64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FilePrefix) == "" {
		return fmtErrorf("file_prefix cannot be empty")
	}

	if strings.ContainsAny(c.FilePrefix, "_./\\") {
		return fmtErrorf("file_prefix must not contain separators: %s", c.FilePrefix)
	}

	if strings.HasPrefix(c.Extension, ".") {
		return fmtErrorf("extension should not start with dot: %s", c.Extension)
	}

	if c.QueueSize <= 0 || c.WriteQueueSize <= 0 {
		return fmtErrorf("queue sizes must be positive: %d, %d", c.QueueSize, c.WriteQueueSize)
	}

	if c.BatchSize <= 0 {
		return fmtErrorf("batch_size must be positive: %d", c.BatchSize)
	}

	if c.MemoryBudgetMB <= 0 {
		return fmtErrorf("memory_budget_mb must be positive: %d", c.MemoryBudgetMB)
	}

	if c.FlushIntervalSec <= 0 {
		return fmtErrorf("flush_interval_sec must be positive: %d", c.FlushIntervalSec)
	}

	if c.Rotation.MaxFileSizeKB < 0 || c.Rotation.RetentionDays < 0 ||
		c.Rotation.MaxFilesPerDay < 0 || c.Rotation.CleanupIntervalMins < 0 {
		return fmtErrorf("rotation settings cannot be negative")
	}

	if c.HeartbeatLevel < 0 || c.HeartbeatLevel > 2 {
		return fmtErrorf("heartbeat_level must be between 0 and 2: %d", c.HeartbeatLevel)
	}

	if c.HeartbeatLevel > 0 && c.HeartbeatIntervalS <= 0 {
		return fmtErrorf("heartbeat_interval_s must be positive when heartbeat is enabled: %d",
			c.HeartbeatIntervalS)
	}

	if err := validateChannelConfig(c.DefaultChannel); err != nil {
		return err
	}

	return nil
}

// validateChannelConfig checks a channel policy for out-of-range values.
func validateChannelConfig(cc ChannelConfig) error {
	if cc.TokensPerSecond < 0 {
		return fmtErrorf("tokens_per_second cannot be negative: %f", cc.TokensPerSecond)
	}
	if cc.BurstCapacity < 0 {
		return fmtErrorf("burst_capacity cannot be negative: %d", cc.BurstCapacity)
	}
	if cc.MaxEntries <= 0 {
		return fmtErrorf("max_entries must be positive: %d", cc.MaxEntries)
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	if c.Format.CustomFields != nil {
		copiedConfig.Format.CustomFields = make(map[string]any, len(c.Format.CustomFields))
		for k, v := range c.Format.CustomFields {
			copiedConfig.Format.CustomFields[k] = v
		}
	}
	return &copiedConfig
}
