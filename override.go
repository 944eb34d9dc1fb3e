// FILE: override.go
package ulog

import (
	"strconv"
	"strings"
)

// ApplyConfigString applies "key=value" overrides on top of the
// current configuration. Keys are dotted toml paths
// ("rotation.retention_days=14"). Values are parsed as integer, float,
// bool, then string, in that order.
func (l *Logger) ApplyConfigString(overrides ...string) error {
	parsed := make(map[string]any, len(overrides))

	for _, raw := range overrides {
		key, value, found := strings.Cut(raw, "=")
		if !found {
			return fmtErrorf("invalid override, expected key=value: %q", raw)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmtErrorf("invalid override, empty key: %q", raw)
		}
		parsed[key] = parseOverrideValue(strings.TrimSpace(value))
	}

	cfg := l.Config()
	if err := applyOverrides(cfg, parsed); err != nil {
		return err
	}
	return l.ApplyConfig(cfg)
}

// parseOverrideValue infers the value type from its text form.
// Numbers win over bools so "1" reaches integer fields; bool fields
// take "true"/"false".
func parseOverrideValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
