package feedsim

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stocktail/internal/metrics"
)

// hub fans broadcast payloads out to connected WebSocket clients. Each client
// owns a buffered send channel; a full channel means a slow client and the
// payload is dropped for that client only.
type hub struct {
	log *slog.Logger
	met *metrics.Sim

	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub(log *slog.Logger, met *metrics.Sim) *hub {
	return &hub{
		log:     log,
		met:     met,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.met.ClientsGauge.Set(float64(n))
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.met.ClientsGauge.Set(float64(n))
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop this payload for it
			h.met.DroppedSends.Inc()
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleWS upgrades the connection and runs its write pump until the client
// goes away or falls behind on a write deadline.
func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	h.log.Info("ws client connected", "remote", r.RemoteAddr, "clients", h.clientCount()+1)

	ch := h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
		h.log.Info("ws client disconnected", "remote", r.RemoteAddr)
	}()

	// Reader drains and discards client frames so close handshakes work.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
