package api

import (
	"net/http"
	"sync"
	"time"

	models "SignalDeck/internal/domain/models"
	xlogger "SignalDeck/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait     = 5 * time.Second
	clientBufSize = 64
)

// EpochSource reports the current batch epoch.
type EpochSource interface {
	Epoch() uint64
}

type streamFrame struct {
	Type     string              `json:"type"`
	Epoch    uint64              `json:"epoch"`
	Signals  []models.SignalView `json:"signals,omitempty"`
	SignalID string              `json:"signal_id,omitempty"`
	Asset    string              `json:"asset,omitempty"`
	From     string              `json:"from,omitempty"`
	To       string              `json:"to,omitempty"`
	Time     string              `json:"time"`
}

// StreamHub pushes lifecycle snapshots and transitions to WebSocket clients.
// It implements the scheduler's presentation sink; frames carrying an epoch
// older than the current one are discarded instead of delivered.
type StreamHub struct {
	logger   *xlogger.Logger
	epochs   EpochSource
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	lastSnap *streamFrame
}

type client struct {
	conn *websocket.Conn
	send chan streamFrame
}

// NewStreamHub creates a hub. The epoch source is bound after construction
// because hub and scheduler reference each other.
func NewStreamHub(logger *xlogger.Logger) *StreamHub {
	return &StreamHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// SetEpochSource binds the scheduler epoch.
func (h *StreamHub) SetEpochSource(src EpochSource) { h.epochs = src }

// Serve upgrades the connection and streams frames until the client leaves.
func (h *StreamHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan streamFrame, clientBufSize)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	count := len(h.clients)
	// New clients get the retained snapshot right away instead of waiting
	// for the next tick.
	if h.lastSnap != nil {
		cl.send <- *h.lastSnap
	}
	h.mu.Unlock()
	h.logger.Info("stream: client connected", xlogger.Int("clients", count))

	go h.writeLoop(cl)

	// Drain reads so close frames and pings are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(cl)
	return nil
}

// Snapshot broadcasts the full eligible set for one epoch.
func (h *StreamHub) Snapshot(epoch uint64, signals []models.EligibleSignal) {
	if h.stale(epoch) {
		return
	}
	views := make([]models.SignalView, 0, len(signals))
	for _, es := range signals {
		views = append(views, toSignalView(es))
	}
	f := streamFrame{
		Type:    "snapshot",
		Epoch:   epoch,
		Signals: views,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	h.mu.Lock()
	h.lastSnap = &f
	h.mu.Unlock()
	h.broadcast(f)
}

// Transition broadcasts one phase change.
func (h *StreamHub) Transition(epoch uint64, sig models.Signal, from, to models.Phase) {
	if h.stale(epoch) {
		return
	}
	h.broadcast(streamFrame{
		Type:     "transition",
		Epoch:    epoch,
		SignalID: sig.ID,
		Asset:    sig.Asset,
		From:     string(from),
		To:       string(to),
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StreamHub) stale(epoch uint64) bool {
	return h.epochs != nil && epoch != h.epochs.Epoch()
}

func (h *StreamHub) broadcast(f streamFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- f:
		default:
			// Slow client; drop the frame rather than block the tick.
		}
	}
}

func (h *StreamHub) writeLoop(cl *client) {
	for f := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteJSON(f); err != nil {
			h.drop(cl)
			return
		}
	}
}

func (h *StreamHub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, cl)
	count := len(h.clients)
	h.mu.Unlock()

	close(cl.send)
	_ = cl.conn.Close()
	h.logger.Info("stream: client disconnected", xlogger.Int("clients", count))
}

// Close disconnects all clients.
func (h *StreamHub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()
	for _, cl := range clients {
		h.drop(cl)
	}
}
