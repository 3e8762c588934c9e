package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	svccache "SignalDeck/internal/service/cache"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

const feedBody = `{
  "last_update": "2026-08-28T10:00:00Z",
  "timezone": "Europe/Kyiv",
  "active_signals": 1,
  "total_signals": 1,
  "signals": [
    {"id": "s1", "asset": "EUR/USD", "direction": "UP", "confidence": 0.82, "entry_time": "13:05", "duration": 3}
  ]
}`

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestFetchDefeatsCaches(t *testing.T) {
	var gotQuery, gotCacheControl string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("t")
		gotCacheControl = r.Header.Get("Cache-Control")
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := New(srv.URL, xhttp.NewClient(), svccache.NewTTLCache(), time.Minute, testLogger(t))
	doc, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery == "" {
		t.Fatal("request missing cache-busting t param")
	}
	if gotCacheControl != "no-cache" {
		t.Fatalf("Cache-Control = %q, want no-cache", gotCacheControl)
	}
	if doc.Stale {
		t.Fatal("fresh fetch marked stale")
	}
	if len(doc.Signals) != 1 || doc.Signals[0].ID != "s1" {
		t.Fatalf("signals = %+v, want s1", doc.Signals)
	}
}

func TestFetchServesStaleOnUpstreamFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	c := New(srv.URL, xhttp.NewClient(), svccache.NewTTLCache(), time.Minute, testLogger(t))
	ctx := context.Background()

	if _, err := c.Fetch(ctx); err != nil {
		t.Fatalf("priming fetch: %v", err)
	}

	fail.Store(true)
	doc, err := c.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch with upstream down: %v", err)
	}
	if !doc.Stale {
		t.Fatal("fallback document not marked stale")
	}
	if len(doc.Signals) != 1 {
		t.Fatalf("stale signals = %d, want 1", len(doc.Signals))
	}
}

func TestFetchFailsWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, xhttp.NewClient(), svccache.NewTTLCache(), time.Minute, testLogger(t))
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch = nil error with no last good payload")
	}
}
