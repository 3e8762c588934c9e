package usecase

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "SignalDeck/internal/domain/models"
)

// fakeState is an in-memory StateStore for usecase tests.
type fakeState struct {
    mu        sync.Mutex
    lang      string
    last      time.Time
    log       []models.FeedbackRecord
    logErr    error
    appendErr error
}

func (f *fakeState) Language(context.Context) (string, error) {
    if f.lang == "" {
        return "uk", nil
    }
    return f.lang, nil
}

func (f *fakeState) SetLanguage(_ context.Context, lang string) error {
    f.lang = lang
    return nil
}

func (f *fakeState) LastGeneration(context.Context) (time.Time, error) {
    return f.last, nil
}

func (f *fakeState) SetLastGeneration(_ context.Context, t time.Time) error {
    f.last = t
    return nil
}

func (f *fakeState) FeedbackLog(context.Context) ([]models.FeedbackRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.logErr != nil {
        return nil, f.logErr
    }
    return append([]models.FeedbackRecord(nil), f.log...), nil
}

func (f *fakeState) AppendFeedback(_ context.Context, rec models.FeedbackRecord) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.appendErr != nil {
        return f.appendErr
    }
    f.log = append(f.log, rec)
    return nil
}

func (f *fakeState) Health(context.Context) error { return nil }

func testSignal(id, entry string, conf float64, dur int) models.Signal {
    return models.Signal{
        ID:              id,
        Asset:           "EUR/USD",
        Direction:       models.DirectionUp,
        Confidence:      conf,
        EntryTime:       entry,
        DurationMinutes: dur,
    }
}

func newTestStore(state *fakeState) *SignalStore {
    engine := NewLifecycleEngine(kyiv, 0)
    return NewSignalStore(engine, state, nil, nil, StoreConfig{})
}

func TestIngestDropsLowConfidence(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.69, 2),
        testSignal("b", "10:00", 0.70, 2),
    }})

    now := time.Date(2026, 8, 28, 9, 55, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 || got[0].Signal.ID != "b" {
        t.Fatalf("eligible = %+v, want only b", got)
    }
}

func TestIngestExcludesAnswered(t *testing.T) {
    state := &fakeState{log: []models.FeedbackRecord{{SignalID: "a", Verdict: models.VerdictYes}}}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
        testSignal("b", "10:05", 0.9, 2),
    }})

    now := time.Date(2026, 8, 28, 9, 55, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 || got[0].Signal.ID != "b" {
        t.Fatalf("eligible = %+v, want only b", got)
    }
}

func TestIngestCorruptLogFailsOpen(t *testing.T) {
    state := &fakeState{logErr: errors.New("bad json")}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
    }})

    now := time.Date(2026, 8, 28, 9, 55, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 {
        t.Fatalf("eligible = %d signals, want 1 (corrupt log must not hide signals)", len(got))
    }
}

func TestIngestClampsOversizedDuration(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 30),
    }})

    now := time.Date(2026, 8, 28, 10, 1, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 {
        t.Fatalf("eligible = %d signals, want 1", len(got))
    }
    if got[0].Signal.DurationMinutes != 5 {
        t.Fatalf("duration = %d, want clamped to 5", got[0].Signal.DurationMinutes)
    }
    if got[0].Class.Remaining != 4*time.Minute {
        t.Fatalf("remaining = %v, want 4m", got[0].Class.Remaining)
    }
}

func TestIngestExcludesMalformedEntryTime(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("bad", "25:99", 0.9, 2),
        testSignal("ok", "10:00", 0.9, 2),
    }})

    now := time.Date(2026, 8, 28, 9, 55, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 || got[0].Signal.ID != "ok" {
        t.Fatalf("eligible = %+v, want only ok", got)
    }
}

func TestIngestKeepsExpiredWithinGrace(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
    }})

    // Ended 10:02; 30s into the grace window.
    now := time.Date(2026, 8, 28, 10, 2, 30, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 1 {
        t.Fatalf("eligible = %d signals, want 1", len(got))
    }
    if got[0].Class.Phase != models.PhaseExpired {
        t.Fatalf("phase = %s, want expired", got[0].Class.Phase)
    }
    if len(state.log) != 0 {
        t.Fatalf("feedback log = %+v, want empty within grace", state.log)
    }
}

func TestIngestAutoSkipsAfterGrace(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    var answered []models.AnsweredSignal
    store.SetOnAnswered(func(row models.AnsweredSignal) { answered = append(answered, row) })
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
    }})

    // Ended 10:02; 90s past the end beats the 1m grace window.
    now := time.Date(2026, 8, 28, 10, 3, 30, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 0 {
        t.Fatalf("eligible = %+v, want none", got)
    }
    if len(state.log) != 1 {
        t.Fatalf("feedback log = %d records, want 1", len(state.log))
    }
    rec := state.log[0]
    if rec.SignalID != "a" || rec.Verdict != models.VerdictSkip || !rec.AutoSkipped {
        t.Fatalf("record = %+v, want auto-skip for a", rec)
    }
    if len(answered) != 1 || answered[0].SignalID != "a" {
        t.Fatalf("answered hook = %+v, want a", answered)
    }

    // The record keeps the signal out of later ingests.
    got = store.Ingest(context.Background(), now.Add(time.Second))
    if len(got) != 0 {
        t.Fatalf("eligible after auto-skip = %+v, want none", got)
    }
    if len(state.log) != 1 {
        t.Fatalf("feedback log grew to %d records, want 1", len(state.log))
    }
}

func TestIngestAutoSkipRetriedWhenAppendFails(t *testing.T) {
    state := &fakeState{appendErr: errors.New("store down")}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
    }})

    now := time.Date(2026, 8, 28, 10, 3, 30, 0, kyiv)
    if got := store.Ingest(context.Background(), now); len(got) != 0 {
        t.Fatalf("eligible = %+v, want none while append failing", got)
    }
    if len(state.log) != 0 {
        t.Fatalf("feedback log = %+v, want empty after failed append", state.log)
    }

    state.appendErr = nil
    if got := store.Ingest(context.Background(), now.Add(time.Second)); len(got) != 0 {
        t.Fatalf("eligible = %+v, want none", got)
    }
    if len(state.log) != 1 {
        t.Fatalf("feedback log = %d records, want 1 after retry", len(state.log))
    }
}

func TestIngestSortsByEntryAndCaps(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    var signals []models.Signal
    for i, entry := range []string{"10:40", "10:10", "10:30", "10:20", "10:50"} {
        signals = append(signals, testSignal(fmt.Sprintf("s%d", i), entry, 0.9, 2))
    }
    store.Replace(&models.FeedDocument{Signals: signals})

    now := time.Date(2026, 8, 28, 10, 0, 0, 0, kyiv)
    got := store.Ingest(context.Background(), now)
    if len(got) != 3 {
        t.Fatalf("eligible = %d signals, want capped at 3", len(got))
    }
    wantOrder := []string{"10:10", "10:20", "10:30"}
    for i, want := range wantOrder {
        if got[i].Signal.EntryTime != want {
            t.Fatalf("position %d = %s, want %s", i, got[i].Signal.EntryTime, want)
        }
    }
}

func TestFindReturnsSignalFromBatch(t *testing.T) {
    state := &fakeState{}
    store := newTestStore(state)
    store.Replace(&models.FeedDocument{Signals: []models.Signal{
        testSignal("a", "10:00", 0.9, 2),
    }})

    now := time.Date(2026, 8, 28, 10, 1, 0, 0, kyiv)
    es, ok := store.Find(now, "a")
    if !ok {
        t.Fatal("Find(a) = not found")
    }
    if es.Class.Phase != models.PhaseActive {
        t.Fatalf("phase = %s, want active", es.Class.Phase)
    }
    if _, ok := store.Find(now, "missing"); ok {
        t.Fatal("Find(missing) = found, want not found")
    }
}
