// FILE: format.go
package ulog

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// formatter renders entries as single-line JSON objects. Output is a
// pure function of the entry and the format configuration, one object
// per line, appended to the caller's buffer.
type formatter struct {
	cfg       FormatConfig
	sessionID string

	// Sorted once so custom fields keep a stable order across lines
	customKeys []string
}

func newFormatter(cfg FormatConfig) *formatter {
	f := &formatter{cfg: cfg}
	if cfg.IncludeSessionID {
		f.sessionID = uuid.NewString()
	}
	if len(cfg.CustomFields) > 0 {
		f.customKeys = make([]string, 0, len(cfg.CustomFields))
		for k := range cfg.CustomFields {
			f.customKeys = append(f.customKeys, k)
		}
		sort.Strings(f.customKeys)
	}
	return f
}

// appendEntry appends one NDJSON line, including the trailing newline.
func (f *formatter) appendEntry(buf []byte, e *LogEntry) []byte {
	buf = append(buf, `{"timestamp":"`...)
	buf = e.Timestamp.Local().AppendFormat(buf, timestampLayout)

	buf = append(buf, `","channel":`...)
	buf = appendJSONString(buf, e.Channel)

	buf = append(buf, `,"level":"`...)
	buf = append(buf, levelToString(e.Level)...)

	buf = append(buf, `","thread_id":"`...)
	buf = append(buf, fmt.Sprintf("%08x", e.ThreadID)...)

	buf = append(buf, `","message":`...)
	buf = appendJSONString(buf, e.Message)

	if f.cfg.IncludeSessionID {
		buf = append(buf, `,"session_id":"`...)
		buf = append(buf, f.sessionID...)
		buf = append(buf, '"')
	}

	if f.cfg.IncludeBuildVersion {
		buf = append(buf, `,"build_version":`...)
		buf = appendJSONString(buf, f.cfg.BuildVersion)
	}

	for _, key := range f.customKeys {
		buf = append(buf, ',')
		buf = appendJSONString(buf, key)
		buf = append(buf, ':')
		buf = appendJSONValue(buf, f.cfg.CustomFields[key])
	}

	buf = append(buf, '}', '\n')
	return buf
}

// appendJSONValue renders common scalar types directly and falls back
// to a spew rendering quoted as a string for anything else.
func appendJSONValue(buf []byte, value any) []byte {
	switch v := value.(type) {
	case nil:
		return append(buf, "null"...)
	case string:
		return appendJSONString(buf, v)
	case bool:
		return strconv.AppendBool(buf, v)
	case int:
		return strconv.AppendInt(buf, int64(v), 10)
	case int64:
		return strconv.AppendInt(buf, v, 10)
	case uint64:
		return strconv.AppendUint(buf, v, 10)
	case float64:
		return strconv.AppendFloat(buf, v, 'g', -1, 64)
	case time.Time:
		buf = append(buf, '"')
		buf = v.AppendFormat(buf, timestampLayout)
		return append(buf, '"')
	default:
		return appendJSONString(buf, spew.Sprintf("%v", v))
	}
}

// appendJSONString appends a quoted, escaped JSON string.
func appendJSONString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if c < 0x20 {
				buf = append(buf, fmt.Sprintf("\\u%04x", c)...)
			} else {
				buf = append(buf, c)
			}
		}
	}
	return append(buf, '"')
}
