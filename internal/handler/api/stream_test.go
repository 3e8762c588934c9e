package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	applogger "SignalDeck/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func newTestHub(t *testing.T) (*StreamHub, *httptest.Server) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	hub := NewStreamHub(l)
	e := echo.New()
	e.GET("/stream", hub.Serve)
	return hub, httptest.NewServer(e)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestStreamDeliversSnapshot(t *testing.T) {
	hub, srv := newTestHub(t)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()

	hub.Snapshot(0, []models.EligibleSignal{{
		Signal: models.Signal{ID: "s1", Asset: "EUR/USD", Direction: models.DirectionUp, Confidence: 0.82, EntryTime: "10:00", DurationMinutes: 3},
		Class:  models.Classification{Phase: models.PhaseWaiting, Remaining: 5 * time.Minute},
	}})

	var f streamFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Type != "snapshot" || len(f.Signals) != 1 || f.Signals[0].ID != "s1" {
		t.Fatalf("frame = %+v, want snapshot with s1", f)
	}
}

func TestStreamNewClientGetsRetainedSnapshot(t *testing.T) {
	hub, srv := newTestHub(t)
	defer srv.Close()
	defer hub.Close()

	hub.Snapshot(0, []models.EligibleSignal{{
		Signal: models.Signal{ID: "s1", EntryTime: "10:00", DurationMinutes: 3},
		Class:  models.Classification{Phase: models.PhaseWaiting},
	}})

	conn := dial(t, srv)
	defer conn.Close()

	var f streamFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read retained frame: %v", err)
	}
	if f.Type != "snapshot" || len(f.Signals) != 1 {
		t.Fatalf("frame = %+v, want retained snapshot", f)
	}
}

func TestStreamDropsStaleEpochFrames(t *testing.T) {
	hub, srv := newTestHub(t)
	defer srv.Close()
	defer hub.Close()

	hub.SetEpochSource(fixedEpoch(7))

	conn := dial(t, srv)
	defer conn.Close()

	hub.Snapshot(6, nil)
	hub.Transition(6, models.Signal{ID: "s1"}, models.PhaseWaiting, models.PhaseActive)
	hub.Snapshot(7, nil)

	var f streamFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Epoch != 7 {
		t.Fatalf("epoch = %d, want stale frames skipped and 7 delivered", f.Epoch)
	}
}

type fixedEpoch uint64

func (e fixedEpoch) Epoch() uint64 { return uint64(e) }
