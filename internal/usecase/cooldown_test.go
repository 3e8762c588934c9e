package usecase

import (
    "context"
    "errors"
    "testing"
    "time"
)

func TestCooldownAllowedWhenUnset(t *testing.T) {
    gate := NewCooldownGate(&fakeState{}, 5*time.Minute, nil)

    st := gate.Status(context.Background(), time.Now())
    if !st.Allowed {
        t.Fatalf("Allowed = false, want true with no prior generation")
    }
    if st.Remaining != 0 {
        t.Fatalf("Remaining = %v, want 0", st.Remaining)
    }
}

func TestCooldownBlocksWithinWindow(t *testing.T) {
    t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
    state := &fakeState{last: t0}
    gate := NewCooldownGate(state, 5*time.Minute, nil)

    st := gate.Status(context.Background(), t0.Add(2*time.Minute))
    if st.Allowed {
        t.Fatal("Allowed = true inside the window")
    }
    if st.Remaining != 3*time.Minute {
        t.Fatalf("Remaining = %v, want 3m", st.Remaining)
    }

    st = gate.Status(context.Background(), t0.Add(5*time.Minute))
    if !st.Allowed {
        t.Fatal("Allowed = false at window end")
    }
}

func TestCooldownRecordGenerationRejectsDuplicate(t *testing.T) {
    t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
    state := &fakeState{}
    gate := NewCooldownGate(state, 5*time.Minute, nil)

    if err := gate.RecordGeneration(context.Background(), t0); err != nil {
        t.Fatalf("first RecordGeneration: %v", err)
    }
    err := gate.RecordGeneration(context.Background(), t0.Add(time.Minute))
    if !errors.Is(err, ErrCooldownActive) {
        t.Fatalf("second RecordGeneration err = %v, want ErrCooldownActive", err)
    }
    if !state.last.Equal(t0) {
        t.Fatalf("last generation moved to %v, want %v", state.last, t0)
    }

    // A full window later the gate reopens.
    if err := gate.RecordGeneration(context.Background(), t0.Add(5*time.Minute)); err != nil {
        t.Fatalf("RecordGeneration after window: %v", err)
    }
}

type brokenState struct {
    fakeState
}

func (b *brokenState) LastGeneration(context.Context) (time.Time, error) {
    return time.Time{}, errors.New("corrupt value")
}

func TestCooldownFailsOpenOnStoreError(t *testing.T) {
    gate := NewCooldownGate(&brokenState{}, 5*time.Minute, nil)

    st := gate.Status(context.Background(), time.Now())
    if !st.Allowed {
        t.Fatal("Allowed = false, want fail open on unreadable state")
    }
}

func TestCooldownDefaultDuration(t *testing.T) {
    gate := NewCooldownGate(&fakeState{}, 0, nil)
    if gate.Duration() != DefaultCooldownDuration {
        t.Fatalf("Duration = %v, want %v", gate.Duration(), DefaultCooldownDuration)
    }
}
