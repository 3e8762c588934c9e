package repository

import (
	"context"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	pkgcache "SignalDeck/pkg/cache"
	applogger "SignalDeck/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestStateStore(t *testing.T) *CacheStateStore {
	t.Helper()
	return NewCacheStateStore(pkgcache.NewMemoryCache(), testLogger(t)).(*CacheStateStore)
}

func TestLanguageDefaultsWhenUnset(t *testing.T) {
	s := newTestStateStore(t)

	lang, err := s.Language(context.Background())
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	if lang != "uk" {
		t.Fatalf("Language = %q, want uk", lang)
	}
}

func TestLanguageRoundTrip(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	if err := s.SetLanguage(ctx, "en"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	lang, err := s.Language(ctx)
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	if lang != "en" {
		t.Fatalf("Language = %q, want en", lang)
	}
}

func TestLastGenerationRoundTrip(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	got, err := s.LastGeneration(ctx)
	if err != nil {
		t.Fatalf("LastGeneration: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("LastGeneration = %v, want zero when unset", got)
	}

	want := time.Date(2026, 8, 28, 12, 30, 45, 123000000, time.UTC)
	if err := s.SetLastGeneration(ctx, want); err != nil {
		t.Fatalf("SetLastGeneration: %v", err)
	}
	got, err = s.LastGeneration(ctx)
	if err != nil {
		t.Fatalf("LastGeneration: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("LastGeneration = %v, want %v", got, want)
	}
}

func TestLastGenerationCorruptValueTreatedAsUnset(t *testing.T) {
	cache := pkgcache.NewMemoryCache()
	s := NewCacheStateStore(cache, testLogger(t)).(*CacheStateStore)
	ctx := context.Background()

	if err := cache.Set(ctx, keyLastGeneration, "not a timestamp", 0); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	got, err := s.LastGeneration(ctx)
	if err != nil {
		t.Fatalf("LastGeneration: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("LastGeneration = %v, want zero for corrupt value", got)
	}
}

func TestAppendFeedbackAccumulates(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	recs := []models.FeedbackRecord{
		{SignalID: "a", Verdict: models.VerdictYes, Timestamp: time.Now().UTC(), Language: "uk"},
		{SignalID: "b", Verdict: models.VerdictSkip, Timestamp: time.Now().UTC(), Language: "en", AutoSkipped: true},
	}
	for _, rec := range recs {
		if err := s.AppendFeedback(ctx, rec); err != nil {
			t.Fatalf("AppendFeedback(%s): %v", rec.SignalID, err)
		}
	}

	log, err := s.FeedbackLog(ctx)
	if err != nil {
		t.Fatalf("FeedbackLog: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("log = %d records, want 2", len(log))
	}
	if log[0].SignalID != "a" || log[1].SignalID != "b" {
		t.Fatalf("log order = %s,%s, want a,b", log[0].SignalID, log[1].SignalID)
	}
	if !log[1].AutoSkipped {
		t.Fatal("AutoSkipped flag lost on round trip")
	}
}

func TestAppendFeedbackReleasesLock(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := models.FeedbackRecord{SignalID: "a", Verdict: models.VerdictNo, Timestamp: time.Now().UTC()}
		if err := s.AppendFeedback(ctx, rec); err != nil {
			t.Fatalf("AppendFeedback #%d: %v", i, err)
		}
	}
	log, err := s.FeedbackLog(ctx)
	if err != nil {
		t.Fatalf("FeedbackLog: %v", err)
	}
	if len(log) != 3 {
		t.Fatalf("log = %d records, want 3", len(log))
	}
}

func TestHealth(t *testing.T) {
	s := newTestStateStore(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
