package util

import (
    "strconv"
    "strings"
    "time"
)

// Unix values above this are treated as milliseconds (year 5138 in seconds).
const unixMillisThreshold = 100_000_000_000

var layouts = []string{
    time.RFC3339,
    time.RFC3339Nano,
    "2006-01-02 15:04:05",
    "2006-01-02",
}

// ParseTime tries RFC3339 variants, plain dates, unix seconds and unix milliseconds.
// Results are in UTC. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range layouts {
        if t, err := time.Parse(layout, s); err == nil {
            return t.UTC(), true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        if ts >= unixMillisThreshold {
            return time.UnixMilli(ts).UTC(), true
        }
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// FormatDay renders t the way forecast headlines print it.
func FormatDay(t time.Time) string {
    return t.UTC().Format("2006-01-02 15:04")
}
