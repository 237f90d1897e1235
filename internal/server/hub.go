package server

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/model"
)

// Event types pushed to connected UI clients.
const (
	EventNoteCreated    = "note_created"
	EventNoteUpdated    = "note_updated"
	EventNoteDeleted    = "note_deleted"
	EventFoldersChanged = "folders_changed"
	EventHistoryChanged = "history_changed"
)

// Message is a state-change notification sent over the websocket so the UI
// can re-render without polling.
type Message struct {
	Type string      `json:"type"`
	Note *model.Note `json:"note,omitempty"`
}

// Hub fans state-change messages out to all connected websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub creates a hub; callers run it with go hub.Run().
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        logger.With().Str("component", "hub").Logger(),
	}
}

// Run processes register/unregister/broadcast events until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Warn().Err(err).Msg("websocket write failed")
					go func(c *websocket.Conn) { h.unregister <- c }(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for all connected clients.
func (h *Hub) Broadcast(msgType string, note *model.Note) {
	h.broadcast <- Message{Type: msgType, Note: note}
}

// Register adds a client connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister drops a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// HandleConnection reads from a client until it disconnects. Clients only
// listen; inbound payloads are drained and ignored.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
