package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/dhaba-pos/api/internal/notify"
)

// Hub maintains the set of connected display clients, grouped into rooms by
// outlet, and broadcasts order events into the right room. It implements
// notify.Sink so the order engine can be handed the hub directly.
type Hub struct {
	// Registered clients by outlet ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan notify.Event

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan notify.Event, 256),
	}
}

// Run is the hub's main loop; call it as a goroutine. It exits when ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for outletID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, outletID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.outletID] == nil {
				h.rooms[client.outletID] = make(map[*Client]bool)
			}
			h.rooms[client.outletID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.outletID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.outletID)
					}
				}
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[ev.OutletID]

			message, err := json.Marshal(ev)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the client.
					close(client.send)
					delete(h.rooms[ev.OutletID], client)
					if len(h.rooms[ev.OutletID]) == 0 {
						delete(h.rooms, ev.OutletID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event for the outlet's room. Satisfies notify.Sink;
// never blocks the caller beyond the buffered channel.
func (h *Hub) Publish(_ context.Context, ev notify.Event) error {
	h.broadcast <- ev
	return nil
}
