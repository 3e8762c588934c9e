package usecase

import (
    "testing"
    "time"

    "SignalDeck/internal/domain/models"
)

var kyiv = time.FixedZone("EET", 2*3600)

func TestClassifyWaiting(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 9, 58, 0, 0, kyiv)

    c, err := e.Classify(now, "10:00", 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if c.Phase != models.PhaseWaiting {
        t.Fatalf("phase = %s, want waiting", c.Phase)
    }
    if c.Remaining != 2*time.Minute {
        t.Fatalf("remaining = %v, want 2m", c.Remaining)
    }
}

func TestClassifyRemainingShrinksAsNowAdvances(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    base := time.Date(2026, 8, 28, 9, 50, 0, 0, kyiv)

    prev := time.Duration(1<<62)
    for _, offset := range []time.Duration{0, 30 * time.Second, 5 * time.Minute, 9 * time.Minute} {
        c, err := e.Classify(base.Add(offset), "10:00", 2)
        if err != nil {
            t.Fatalf("unexpected error: %v", err)
        }
        if c.Phase != models.PhaseWaiting {
            t.Fatalf("phase at +%v = %s, want waiting", offset, c.Phase)
        }
        if c.Remaining <= 0 || c.Remaining >= prev {
            t.Fatalf("remaining not strictly decreasing: %v then %v", prev, c.Remaining)
        }
        prev = c.Remaining
    }
}

func TestClassifyActive(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 10, 1, 0, 0, kyiv)

    c, err := e.Classify(now, "10:00", 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if c.Phase != models.PhaseActive {
        t.Fatalf("phase = %s, want active", c.Phase)
    }
    if c.Remaining != time.Minute {
        t.Fatalf("remaining = %v, want 1m", c.Remaining)
    }
}

func TestClassifyExpired(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 10, 3, 0, 0, kyiv)

    c, err := e.Classify(now, "10:00", 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if c.Phase != models.PhaseExpired {
        t.Fatalf("phase = %s, want expired", c.Phase)
    }
    if c.Remaining != 0 {
        t.Fatalf("remaining = %v, want 0", c.Remaining)
    }
}

func TestClassifyDayRollover(t *testing.T) {
    // 23:50 with entry 00:05: the candidate is ~23h50m in the past, beyond the
    // 12h threshold, so the entry belongs to tomorrow and the signal waits.
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 23, 50, 0, 0, kyiv)

    c, err := e.Classify(now, "00:05", 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if c.Phase != models.PhaseWaiting {
        t.Fatalf("phase = %s, want waiting", c.Phase)
    }
    wantEntry := time.Date(2026, 8, 29, 0, 5, 0, 0, kyiv)
    if !c.EntryAt.Equal(wantEntry) {
        t.Fatalf("entry = %v, want %v", c.EntryAt, wantEntry)
    }
    if c.Remaining != 15*time.Minute {
        t.Fatalf("remaining = %v, want 15m", c.Remaining)
    }
}

func TestClassifyNoRolloverWithinThreshold(t *testing.T) {
    // Entry a few minutes in the past stays on today: the signal is expired,
    // not quietly deferred to tomorrow.
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 10, 10, 0, 0, kyiv)

    c, err := e.Classify(now, "10:00", 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if c.Phase != models.PhaseExpired {
        t.Fatalf("phase = %s, want expired", c.Phase)
    }
    if c.EntryAt.Day() != 28 {
        t.Fatalf("entry rolled over unexpectedly: %v", c.EntryAt)
    }
}

func TestClassifyRejectsMalformedEntryTime(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 10, 0, 0, 0, kyiv)

    for _, s := range []string{"", "banana", "24:00", "10:61"} {
        if _, err := e.Classify(now, s, 2); err == nil {
            t.Fatalf("expected error for entry time %q", s)
        }
    }
}

func TestClassifyRejectsNonPositiveDuration(t *testing.T) {
    e := NewLifecycleEngine(kyiv, 0)
    now := time.Date(2026, 8, 28, 10, 0, 0, 0, kyiv)

    for _, d := range []int{0, -1} {
        if _, err := e.Classify(now, "10:05", d); err == nil {
            t.Fatalf("expected error for duration %d", d)
        }
    }
}
