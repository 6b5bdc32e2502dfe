package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RoundEvent is one step of a Planner round's lifecycle, broadcast to every
// connected dashboard client.
type RoundEvent struct {
	Type     string    `json:"type"` // round_started, round_completed, round_aborted
	At       time.Time `json:"at"`
	TraceID  string    `json:"trace_id,omitempty"`
	WinnerID int64     `json:"winner_id,omitempty"`
	TargetHr int       `json:"target_hour,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// EventHub fans out RoundEvents to every connected websocket client.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	logger  zerolog.Logger
}

// NewEventHub builds an empty EventHub.
func NewEventHub(logger zerolog.Logger) *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]bool), logger: logger.With().Str("component", "events").Logger()}
}

// Broadcast sends ev to every currently connected client, dropping any
// connection that fails to receive it.
func (h *EventHub) Broadcast(ev RoundEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.remove(conn)
		}
	}
}

// HandleStream upgrades the request to a websocket and registers the
// connection for round-event broadcasts until it disconnects.
func (h *EventHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// RoundStarted, RoundCompleted, and RoundAborted implement planner.Notifier
// structurally, so Planner can broadcast its lifecycle to connected
// dashboards without this package importing app/planner. traceID correlates
// the three events of a single round and matches the trace ID attached to
// that round's log lines.
func (h *EventHub) RoundStarted(traceID string) {
	h.Broadcast(RoundEvent{Type: "round_started", At: time.Now(), TraceID: traceID})
}

func (h *EventHub) RoundCompleted(traceID string, winnerID int64, targetHour int) {
	h.Broadcast(RoundEvent{Type: "round_completed", At: time.Now(), TraceID: traceID, WinnerID: winnerID, TargetHr: targetHour})
}

func (h *EventHub) RoundAborted(traceID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	h.Broadcast(RoundEvent{Type: "round_aborted", At: time.Now(), TraceID: traceID, Error: msg})
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
