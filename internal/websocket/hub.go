package websocket

import (
	"log"
	"sync"

	"github.com/vntrieu/werewolf/internal/metrics"
)

// Hub maintains the set of active clients and fans events out to them. It
// implements the registry's Notifier, so the game layer never touches
// connections directly.
type Hub struct {
	// Registered clients by room code -> client set
	rooms map[string]map[*Client]bool

	// Outbound messages awaiting fan-out
	broadcast chan *BroadcastMessage

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Event handler for processing client messages
	events *EventHandler

	mu sync.RWMutex
}

// BroadcastMessage routes one envelope. PlayerID narrows delivery to a
// single participant's connections; empty means the whole room.
type BroadcastMessage struct {
	RoomCode string
	PlayerID string
	Envelope *ServerEnvelope
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetEventHandler wires the message dispatcher. Must be called before Run.
func (h *Hub) SetEventHandler(events *EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = events
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.RoomCode] == nil {
				h.rooms[client.RoomCode] = make(map[*Client]bool)
			}
			h.rooms[client.RoomCode][client] = true
			total := len(h.rooms[client.RoomCode])
			h.mu.Unlock()
			metrics.WSConnections.Inc()
			log.Printf("ws client registered room=%s player=%s total=%d", client.RoomCode, client.PlayerID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.RoomCode]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.RoomCode)
					}
				}
			}
			h.mu.Unlock()
			metrics.WSConnections.Dec()
			log.Printf("ws client unregistered room=%s player=%s", client.RoomCode, client.PlayerID)

		case message := <-h.broadcast:
			h.mu.RLock()
			room, exists := h.rooms[message.RoomCode]
			if exists {
				for client := range room {
					if message.PlayerID != "" && client.PlayerID != message.PlayerID {
						continue
					}
					select {
					case client.send <- message.Envelope:
					default:
						close(client.send)
						delete(room, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ToRoom sends an event envelope to every client in a room. Part of the
// registry Notifier contract.
func (h *Hub) ToRoom(code, event string, payload map[string]interface{}) {
	h.broadcast <- &BroadcastMessage{
		RoomCode: code,
		Envelope: &ServerEnvelope{Type: envelopeType(event), Event: event, Payload: payload},
	}
}

// ToPlayer sends an event envelope to one participant's connections. Part of
// the registry Notifier contract.
func (h *Hub) ToPlayer(code, playerID, event string, payload map[string]interface{}) {
	h.broadcast <- &BroadcastMessage{
		RoomCode: code,
		PlayerID: playerID,
		Envelope: &ServerEnvelope{Type: envelopeType(event), Event: event, Payload: payload},
	}
}

// envelopeType distinguishes full state pushes from incremental events.
func envelopeType(event string) string {
	if event == "state" {
		return ServerTypeState
	}
	return ServerTypeEvent
}

// RoomClientCount returns the number of connections in a room.
func (h *Hub) RoomClientCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[code]; ok {
		return len(room)
	}
	return 0
}
