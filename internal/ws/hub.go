package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/stallpass/api/internal/notify"
)

// Event is the frame written to token board subscribers.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type stallEvent struct {
	StallID uuid.UUID
	Event   Event
}

// Hub tracks token board subscribers per stall.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *stallEvent

	// closed once Run returns so late publishers never block
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *stallEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for stallID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, stallID)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.stallID] == nil {
				h.rooms[client.stallID] = make(map[*Client]bool)
			}
			h.rooms[client.stallID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.StallID] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.stallID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.stallID)
	}
}

// BroadcastToStall queues an event for every subscriber of the stall.
func (h *Hub) BroadcastToStall(stallID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &stallEvent{StallID: stallID, Event: event}:
	case <-h.done:
	}
}

// Publish satisfies notify.Publisher.
func (h *Hub) Publish(_ context.Context, e notify.Event) {
	h.BroadcastToStall(e.StallID, Event{Type: e.Type, Payload: e.Payload})
}

// Subscribers returns the number of clients watching a stall.
func (h *Hub) Subscribers(stallID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[stallID])
}
