// websocket.go - Live push of counter snapshots to subscribed clients
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"rolltrackd/internal/counter"
	"rolltrackd/internal/logging"
	"rolltrackd/internal/metrics"
)

// WebSocket message types pushed to clients.
const (
	MsgTypeCounters = "counters"
)

// WSMessage is the envelope for every pushed message.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to localhost for a single-operator floor terminal.
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one connected websocket subscriber.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans pushed messages out to every connected client. A slow client
// drops messages rather than stalling ingestion; snapshots are cumulative,
// so the next one makes the client whole.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// countersMessage builds the wire form of a counters push.
func countersMessage(counters map[string]counter.Counts) ([]byte, error) {
	payload, err := json.Marshal(counters)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:      MsgTypeCounters,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// BroadcastCounters pushes a cumulative counter snapshot to all clients.
func (h *Hub) BroadcastCounters(counters map[string]counter.Counts) {
	msg, err := countersMessage(counters)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
		}
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(int64(n))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl.id]; ok {
		delete(h.clients, cl.id)
		close(cl.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(int64(n))
}

// handleWebSocket upgrades the connection and registers the client. An
// initial counter snapshot is pushed immediately so the client renders
// without waiting for the next batch.
func (h *handlers) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}
	h.deps.Hub.add(cl)
	logging.Debug("websocket client connected", "client_id", cl.id)

	go cl.writePump(h.deps.Hub)
	go cl.readPump(h.deps.Hub)

	// The snapshot goes to this client only; peers already have it.
	if msg, err := countersMessage(h.deps.Aggregator.Snapshot()); err == nil {
		select {
		case cl.send <- msg:
		default:
		}
	}
	return nil
}

// readPump discards inbound frames and detects disconnects. Clients are
// subscribers only; there is no inbound protocol.
func (cl *client) readPump(h *Hub) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send channel onto the connection.
func (cl *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(cl)
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
