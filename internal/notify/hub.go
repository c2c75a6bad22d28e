package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub broadcasts catalogue refresh events to connected websocket
// clients. It implements the coordinator's Notifier interface.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  zerolog.Logger
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

// RefreshEvent is the wire shape of one broadcast.
type RefreshEvent struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Refreshed string `json:"refreshedAt"`
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// RefreshCompleted satisfies cache.Notifier.
func (h *Hub) RefreshCompleted(key string, at time.Time) {
	h.BroadcastJSON(RefreshEvent{
		Type:      "refresh",
		Key:       key,
		Refreshed: at.UTC().Format(time.RFC3339),
	})
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients)}
}
