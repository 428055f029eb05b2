package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served from another origin
	},
}

// Hub broadcasts pipeline run events to websocket clients
// ⭐ SSOT: /ws/runs connections are tracked here only
type Hub struct {
	logger  *logger.Logger
	metrics *metrics.Registry

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewHub creates an empty hub
func NewHub(m *metrics.Registry, log *logger.Logger) *Hub {
	return &Hub{
		logger:  log.Module("ws"),
		metrics: m,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the client until it disconnects
// GET /ws/runs
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade websocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
	h.metrics.WSClientConnected(1)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		h.metrics.WSClientConnected(-1)
		conn.Close()
	}()

	// clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Websocket client dropped")
			}
			return
		}
	}
}

// Publish sends a run event to every client. It is a pipeline.Listener.
func (h *Hub) Publish(ev pipeline.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal run event")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	locks := make([]*sync.Mutex, 0, len(h.clients))
	for conn, lock := range h.clients {
		conns = append(conns, conn)
		locks = append(locks, lock)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		locks[i].Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		locks[i].Unlock()

		if err != nil {
			h.logger.WithError(err).Debug("Failed to send run event")
		}
	}
}

// Close sends a going-away frame to every client and drops them. The
// read loops of ServeWS then return.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn, lock := range h.clients {
		lock.Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		lock.Unlock()
		conn.Close()
	}
}
