package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"driver.schoolfleet.org/internal/fleet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dispatch dashboard connects from a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHub fans live tracking updates out to connected websocket clients.
type streamHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newStreamHub(logger *slog.Logger) *streamHub {
	return &streamHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// attach subscribes the hub to the fleet manager's update feed.
func (h *streamHub) attach(manager *fleet.Manager) {
	if manager == nil {
		return
	}
	manager.Subscribe(func(u fleet.Update) {
		h.broadcast(u)
	})
}

func (h *streamHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *streamHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *streamHub) broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode stream update", "error", err)
		return
	}

	// Writes happen under the hub lock; gorilla connections do not allow
	// concurrent writers.
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("dropping websocket client", "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// positionsStreamHandler upgrades the connection and streams every accepted
// sample and status transition until the client disconnects.
func (api *RestAPI) positionsStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	api.hub.add(conn)

	// Reader loop exists only to notice disconnects; clients do not send.
	go func() {
		defer api.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
