package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fpang/cinegen/internal/studio"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPath       = "/api/ws"
	writeWait    = 10 * time.Second
	sendBuffer   = 16
	readLimit    = 4096
	requestState = "request_state"
)

// wsMessage is the only message a client may send.
type wsMessage struct {
	Type string `json:"type"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans studio snapshots out to every connected WebSocket client.
type Hub struct {
	orch     *studio.Orchestrator
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	unsub   func()
}

func newHub(orch *studio.Orchestrator, origins []string) *Hub {
	h := &Hub{
		orch:    orch,
		clients: make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin(origin, origins)
		},
	}
	h.unsub = orch.Subscribe(h.broadcast)
	return h
}

func (h *Hub) broadcast(snap studio.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode snapshot")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// A client that cannot keep up is dropped.
			log.Warn().Msg("WebSocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) sendTo(c *wsClient, snap studio.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close detaches the hub from the orchestrator and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.unsub()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Debug().Int("clients", total).Msg("WebSocket client connected")

	go h.writePump(c)
	h.sendTo(c, h.orch.Snapshot())
	go h.readPump(c)
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
		if msg.Type == requestState {
			h.sendTo(c, h.orch.Snapshot())
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
