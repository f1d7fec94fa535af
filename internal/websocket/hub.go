package livews

import (
	"context"
	"encoding/json"
	"log/slog"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/mattfreire/mentors/internal/services"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 32
)

// Hub fans session updates out to every socket watching that session.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan registration
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
}

// registration carries an optional first payload so it is queued by the
// hub goroutine, which owns every send on and close of a client channel.
type registration struct {
	client   *Client
	snapshot []byte
}

type envelope struct {
	sessionID int64
	payload   []byte
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID int64
	userID    string
	send      chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan registration),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID int64, userID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		send:      make(chan []byte, clientBuffer),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for sessionID, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, sessionID)
			}
			return
		case reg := <-h.register:
			client := reg.client
			set, ok := h.clients[client.sessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.sessionID] = set
			}
			set[client] = struct{}{}
			if reg.snapshot != nil {
				select {
				case client.send <- reg.snapshot:
				default:
				}
			}
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Register adds the client to its session and queues snapshot, when given,
// ahead of any later update. It reports false once the hub has stopped; the
// client's send channel is then closed so its write pump exits.
func (h *Hub) Register(client *Client, snapshot *services.LiveUpdate) bool {
	reg := registration{client: client}
	if snapshot != nil {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			slog.Error("live hub encode snapshot", "session_id", client.sessionID, "error", err)
		} else {
			reg.snapshot = payload
		}
	}

	select {
	case h.register <- reg:
		return true
	case <-h.done:
		close(client.send)
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishSessionUpdate queues an update for the session's watchers. It never
// blocks the caller; updates are dropped when the queue is full.
func (h *Hub) PublishSessionUpdate(sessionID int64, update services.LiveUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("live hub encode update", "session_id", sessionID, "error", err)
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, payload: payload}:
	default:
		slog.Warn("live hub queue full, dropping update", "session_id", sessionID, "event", update.Event)
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.sessionID)
	}
}

func (h *Hub) deliver(msg envelope) {
	set, ok := h.clients[msg.sessionID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- msg.payload:
		default:
			// slow consumer
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, msg.sessionID)
	}
}

// ReadPump discards inbound frames and unregisters the client once the peer
// goes away. Session changes only flow through the REST endpoints.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Debug("live socket write failed", "session_id", c.sessionID, "user_id", c.userID, "error", err)
			return
		}
	}
}
