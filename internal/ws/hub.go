package ws

import (
	"encoding/json"
	"log/slog"
)

// Hub manages all active WebSocket clients and routes server pushes. A user
// may hold several connections at once (extension popup plus a content
// script, or two browser windows), so clients are tracked per uid.
type Hub struct {
	logger *slog.Logger

	// clients maps uid → active connections.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	direct     chan *directMsg
}

type directMsg struct {
	uid  string
	data []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan *directMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.uid] == nil {
				h.clients[client.uid] = make(map[*Client]struct{})
			}
			h.clients[client.uid][client] = struct{}{}
			h.logger.Info("ws client connected", "uid", client.uid, "connections", len(h.clients[client.uid]))

		case client := <-h.unregister:
			if set, ok := h.clients[client.uid]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					close(client.done)
					if len(set) == 0 {
						delete(h.clients, client.uid)
					}
					h.logger.Info("ws client disconnected", "uid", client.uid, "connections", len(set))
				}
			}

		case msg := <-h.direct:
			for client := range h.clients[msg.uid] {
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					delete(h.clients[msg.uid], client)
					close(client.send)
					close(client.done)
				}
			}
		}
	}
}

// SendToUser delivers an event to every connection the user holds. Users
// with no open connection silently miss the event; they resync on the next
// connect.
func (h *Hub) SendToUser(uid string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws hub marshal", "error", err)
		return
	}
	h.direct <- &directMsg{uid: uid, data: data}
}
