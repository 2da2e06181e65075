// ws/hub.go
package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ViniZap4/notes-server/domain"
)

// Conn is the part of a websocket connection the hub uses.
// *github.com/gofiber/contrib/websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Hub fans repository events out to every connected client. Only the Run
// goroutine writes to connections.
type Hub struct {
	clients    map[Conn]string
	broadcast  chan domain.Event
	register   chan Conn
	unregister chan Conn
	done       chan struct{}
	log        zerolog.Logger
	mu         sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[Conn]string),
		broadcast:  make(chan domain.Event, 256),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws").Logger(),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			id := uuid.NewString()
			h.mu.Lock()
			h.clients[conn] = id
			h.mu.Unlock()
			h.log.Debug().Str("client", id).Msg("client connected")

		case conn := <-h.unregister:
			h.drop(conn)

		case evt := <-h.broadcast:
			h.mu.RLock()
			var failed []Conn
			for conn, id := range h.clients {
				if err := conn.WriteJSON(evt); err != nil {
					h.log.Warn().Err(err).Str("client", id).Msg("write failed, dropping client")
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range failed {
				h.drop(conn)
			}
		}
	}
}

func (h *Hub) drop(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.log.Debug().Str("client", id).Msg("client disconnected")
	}
}

// Notify queues evt for broadcast. It never blocks: when the queue is full
// the event is dropped.
func (h *Hub) Notify(evt domain.Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.log.Warn().Str("type", string(evt.Type)).Msg("event queue full, dropping event")
	}
}

func (h *Hub) Register(conn Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

func (h *Hub) Unregister(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection registers conn and reads from it until the client goes
// away. Clients only listen; incoming messages are logged and ignored.
func (h *Hub) HandleConnection(conn Conn) {
	h.Register(conn)
	defer h.Unregister(conn)

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msgType, ok := msg["type"].(string); ok {
			h.log.Debug().Str("type", msgType).Msg("client message")
		}
	}
}
