// FILE: utility.go
package ulog

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// fmtErrorf wraps fmt.Errorf to add the package prefix
func fmtErrorf(format string, args ...any) error {
	return fmt.Errorf("ulog: "+format, args...)
}

// combineErrors merges multiple errors into one
func combineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		var sb strings.Builder
		for i, err := range nonNil {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(err.Error())
		}
		return fmtErrorf("%s", sb.String())
	}
}

// Level parses a level name or numeric string into a level value.
func Level(levelStr string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LevelDebug, nil
	case "info", "message":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	default:
		if n, err := strconv.ParseInt(strings.TrimSpace(levelStr), 10, 64); err == nil {
			return n, nil
		}
		return 0, fmtErrorf("invalid level: %s", levelStr)
	}
}

// levelToString converts a level value to its display name.
func levelToString(level int64) string {
	switch {
	case level >= LevelCritical:
		return "CRITICAL"
	case level >= LevelError:
		return "ERROR"
	case level >= LevelWarn:
		return "WARN"
	case level >= LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// goroutineID extracts the numeric id of the calling goroutine from the
// runtime stack header ("goroutine 12 [running]:"). Used only to stamp
// records, never for identity-sensitive logic.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// splitChannel splits a dotted channel name into parent path and leaf.
// Top-level names have an empty parent.
func splitChannel(name string) (parent, leaf string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// validChannelName rejects names that would break file naming or the
// hierarchy separator.
func validChannelName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "_/\\ \t\n")
}

// channelFileComponent flattens a dotted channel name for use inside a
// file name, where underscores are field separators.
func channelFileComponent(name string) string {
	return strings.ReplaceAll(name, ".", "-")
}
