package util

import (
    "fmt"
    "strconv"
    "strings"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
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

// ParseClockTime parses a wall-clock "HH:MM" string.
func ParseClockTime(s string) (hour, minute int, err error) {
    parts := strings.Split(strings.TrimSpace(s), ":")
    if len(parts) != 2 {
        return 0, 0, fmt.Errorf("clock time %q: want HH:MM", s)
    }
    hour, err = strconv.Atoi(parts[0])
    if err != nil {
        return 0, 0, fmt.Errorf("clock time %q: hour: %w", s, err)
    }
    minute, err = strconv.Atoi(parts[1])
    if err != nil {
        return 0, 0, fmt.Errorf("clock time %q: minute: %w", s, err)
    }
    if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
        return 0, 0, fmt.Errorf("clock time %q: out of range", s)
    }
    return hour, minute, nil
}

// OnDay returns the instant at hour:minute on the same calendar day as ref,
// in ref's location.
func OnDay(ref time.Time, hour, minute int) time.Time {
    y, m, d := ref.Date()
    return time.Date(y, m, d, hour, minute, 0, 0, ref.Location())
}
