package util

import (
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2026-08-28T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseClockTime(t *testing.T) {
    h, m, err := ParseClockTime("22:05")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if h != 22 || m != 5 {
        t.Fatalf("unexpected %d:%d", h, m)
    }
}

func TestParseClockTimeInvalid(t *testing.T) {
    for _, s := range []string{"", "22", "22:xx", "25:00", "12:60", "ab:cd"} {
        if _, _, err := ParseClockTime(s); err == nil {
            t.Fatalf("expected error for %q", s)
        }
    }
}

func TestOnDay(t *testing.T) {
    loc := time.FixedZone("EET", 2*3600)
    ref := time.Date(2026, 8, 28, 23, 50, 12, 0, loc)
    got := OnDay(ref, 0, 5)
    want := time.Date(2026, 8, 28, 0, 5, 0, 0, loc)
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
}
