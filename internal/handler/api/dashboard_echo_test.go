package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/usecase"
	applogger "SignalDeck/pkg/logger"

	"github.com/labstack/echo/v4"
)

var kyiv = time.FixedZone("EET", 2*3600)

type fakeState struct {
	mu   sync.Mutex
	lang string
	last time.Time
	log  []models.FeedbackRecord
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
	return append([]models.FeedbackRecord(nil), f.log...), nil
}

func (f *fakeState) AppendFeedback(_ context.Context, rec models.FeedbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, rec)
	return nil
}

func (f *fakeState) Health(context.Context) error { return nil }

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Trigger(context.Context, string, string) error {
	f.calls++
	return f.err
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type fixture struct {
	e          *echo.Echo
	state      *fakeState
	dispatcher *fakeDispatcher
	store      *usecase.SignalStore
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	state := &fakeState{}
	clock := usecase.FixedClock{T: now}
	engine := usecase.NewLifecycleEngine(kyiv, 0)
	store := usecase.NewSignalStore(engine, state, nil, nil, usecase.StoreConfig{})
	gate := usecase.NewCooldownGate(state, 5*time.Minute, nil)
	sched := usecase.NewScheduler(clock, store, nil, nil, nil, nil, time.Second)
	disp := &fakeDispatcher{}

	h := NewDashboardHandler(l, clock, store, gate, sched, state, disp, nil, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return &fixture{e: e, state: state, dispatcher: disp, store: store}
}

func doJSON(f *fixture, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSignalsEndpointReturnsEligibleSet(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 55, 0, 0, kyiv)
	f := newFixture(t, now)
	f.store.Replace(&models.FeedDocument{
		LastUpdate: "2026-08-28T09:54:00Z",
		Signals: []models.Signal{
			{ID: "s1", Asset: "EUR/USD", Direction: models.DirectionUp, Confidence: 0.82, EntryTime: "10:00", DurationMinutes: 3},
			{ID: "low", Asset: "GBP/USD", Direction: models.DirectionDown, Confidence: 0.50, EntryTime: "10:05", DurationMinutes: 3},
		},
	})

	_, env := doJSON(f, http.MethodGet, "/api/signals", "")
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var view models.SignalsView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(view.Signals) != 1 || view.Signals[0].ID != "s1" {
		t.Fatalf("signals = %+v, want only s1", view.Signals)
	}
	if view.Signals[0].Phase != string(models.PhaseWaiting) {
		t.Fatalf("phase = %s, want waiting", view.Signals[0].Phase)
	}
	if view.LastUpdate != "2026-08-28T09:54:00Z" {
		t.Fatalf("last_update = %q", view.LastUpdate)
	}
}

func TestFeedbackRecordsAndExcludesSignal(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 1, 0, 0, kyiv)
	f := newFixture(t, now)
	f.store.Replace(&models.FeedDocument{Signals: []models.Signal{
		{ID: "s1", Asset: "EUR/USD", Direction: models.DirectionUp, Confidence: 0.82, EntryTime: "10:00", DurationMinutes: 3},
	}})

	_, env := doJSON(f, http.MethodPost, "/api/feedback", `{"signal_id":"s1","verdict":"yes"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	if len(f.state.log) != 1 || f.state.log[0].Verdict != models.VerdictYes {
		t.Fatalf("log = %+v, want one yes record", f.state.log)
	}
	if f.state.log[0].Language != "uk" {
		t.Fatalf("language = %q, want default uk", f.state.log[0].Language)
	}

	_, env = doJSON(f, http.MethodGet, "/api/signals", "")
	var view models.SignalsView
	_ = json.Unmarshal(env.Data, &view)
	if len(view.Signals) != 0 {
		t.Fatalf("signals after feedback = %+v, want none", view.Signals)
	}
}

func TestFeedbackDuplicateIsNoOp(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 1, 0, 0, kyiv)
	f := newFixture(t, now)
	f.state.log = []models.FeedbackRecord{{SignalID: "s1", Verdict: models.VerdictYes}}

	_, env := doJSON(f, http.MethodPost, "/api/feedback", `{"signal_id":"s1","verdict":"no"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var resp struct {
		Recorded  bool `json:"recorded"`
		Duplicate bool `json:"duplicate"`
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Recorded || !resp.Duplicate {
		t.Fatalf("resp = %+v, want duplicate no-op", resp)
	}
	if len(f.state.log) != 1 {
		t.Fatalf("log = %d records, want unchanged 1", len(f.state.log))
	}
}

func TestFeedbackRejectsBadVerdict(t *testing.T) {
	f := newFixture(t, time.Now())

	_, env := doJSON(f, http.MethodPost, "/api/feedback", `{"signal_id":"s1","verdict":"maybe"}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", env.Status)
	}
}

func TestGenerateDispatchesAndStartsCooldown(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	_, env := doJSON(f, http.MethodPost, "/api/generate", `{}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	if f.dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", f.dispatcher.calls)
	}
	if !f.state.last.Equal(now) {
		t.Fatalf("last generation = %v, want %v", f.state.last, now)
	}

	// Second request inside the window is rejected without dispatching.
	_, env = doJSON(f, http.MethodPost, "/api/generate", `{}`)
	if env.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", env.Status)
	}
	if f.dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want still 1", f.dispatcher.calls)
	}
}

func TestGenerateFailureDoesNotStartCooldown(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.dispatcher.err = errors.New("workflow rejected")

	_, env := doJSON(f, http.MethodPost, "/api/generate", `{}`)
	if env.Status != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", env.Status)
	}
	if !f.state.last.IsZero() {
		t.Fatalf("last generation = %v, want unset after failed dispatch", f.state.last)
	}

	// The failed attempt must not block an immediate retry.
	f.dispatcher.err = nil
	_, env = doJSON(f, http.MethodPost, "/api/generate", `{}`)
	if env.Status != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", env.Status)
	}
}

func TestCooldownEndpoint(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.state.last = now.Add(-2 * time.Minute)

	_, env := doJSON(f, http.MethodGet, "/api/cooldown", "")
	var view models.CooldownView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if view.Allowed {
		t.Fatal("Allowed = true inside window")
	}
	if view.RemainingSeconds != 180 {
		t.Fatalf("remaining = %d, want 180", view.RemainingSeconds)
	}
}

func TestLanguageRoundTrip(t *testing.T) {
	f := newFixture(t, time.Now())

	_, env := doJSON(f, http.MethodPut, "/api/language", `{"language":"en"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}

	_, env = doJSON(f, http.MethodGet, "/api/language", "")
	var resp map[string]string
	_ = json.Unmarshal(env.Data, &resp)
	if resp["language"] != "en" {
		t.Fatalf("language = %q, want en", resp["language"])
	}

	_, env = doJSON(f, http.MethodPut, "/api/language", `{"language":"fr"}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unsupported language", env.Status)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, time.Now())

	rec, env := doJSON(f, http.MethodGet, "/api/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("http code = %d, want 200", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(env.Data, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("status = %v, want ok", resp["status"])
	}
}
