package events

import (
	"encoding/json"
	"log"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
)

// Event is one booking state change pushed to connected studio
// dashboards. Notification delivery beyond the live feed (email, SMS)
// is an external collaborator's job.
type Event struct {
	Type      string `json:"type"`
	TenantID  string `json:"tenant_id"`
	SessionID int64  `json:"session_id,omitempty"`
	SeriesID  int64  `json:"series_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

const (
	EventSessionBooked      = "session.booked"
	EventSessionRescheduled = "session.rescheduled"
	EventSessionCancelled   = "session.cancelled"
	EventSeriesCreated      = "series.created"
	EventSeriesUpdated      = "series.updated"
	EventSeriesDeleted      = "series.deleted"
	EventParticipantJoined  = "participant.joined"
	EventParticipantLeft    = "participant.left"
)

// Hub fans booking events out to the websocket clients of one tenant.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	tenantID string
	send     chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, tenantID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		tenantID: tenantID,
		send:     make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.tenantID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.tenantID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.tenantID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.tenantID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish queues an event for the tenant's connected clients. It never
// blocks the booking path: a full queue drops the event.
func (h *Hub) Publish(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	select {
	case h.broadcast <- &event:
	default:
		log.Printf("events hub queue full, dropping %s", event.Type)
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("events hub encode: %v", err)
		return
	}

	set, ok := h.clients[event.TenantID]
	if !ok {
		return
	}
	for client := range set {
		select {
		case client.send <- encoded:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, event.TenantID)
	}
}

// ReadPump drains inbound frames until the peer disconnects; the feed
// is one-way.
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
			return
		}
	}
}
