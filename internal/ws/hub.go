package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dayEvent routes an encoded event to the room of one business day
type dayEvent struct {
	Day     string
	Message []byte
}

// lastMessage is the most recent message broadcast to a day, replayed to
// clients that join later.
type lastMessage struct {
	data []byte
	at   time.Time
}

// Hub maintains the set of active clients grouped by the business day they
// watch, and fans out day summaries to them.
type Hub struct {
	// Registered clients by business day (YYYY-MM-DD)
	rooms map[string]map[*Client]bool

	// Last message per watched day
	last map[string]lastMessage

	register   chan *Client
	unregister chan *Client
	broadcast  chan *dayEvent
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		last:       make(map[string]lastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *dayEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.day] == nil {
				h.rooms[client.day] = make(map[*Client]bool)
			}
			h.rooms[client.day][client] = true
			if last, ok := h.last[client.day]; ok {
				// A fresh buffer always has room
				select {
				case client.send <- last.data:
				default:
				}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[event.Day] {
				select {
				case client.send <- event.Message:
				default:
					// Slow consumer; the write pump sees the closed channel and hangs up
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client and closes its send channel. Callers hold mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.day]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.day)
		delete(h.last, client.day)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}

// Days lists the business days that currently have at least one watcher.
func (h *Hub) Days() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	days := make([]string, 0, len(h.rooms))
	for day := range h.rooms {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// BroadcastToDay sends an event to every client watching day and keeps it
// for clients that join later. It is a no-op once the hub has stopped.
func (h *Hub) BroadcastToDay(day string, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	if _, watched := h.rooms[day]; watched {
		h.last[day] = lastMessage{data: message, at: time.Now()}
	}
	h.mu.Unlock()

	select {
	case h.broadcast <- &dayEvent{Day: day, Message: message}:
	case <-h.done:
	}
}

// fresh reports whether day has a kept message younger than maxAge.
func (h *Hub) fresh(day string, maxAge time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	last, ok := h.last[day]
	return ok && time.Since(last.at) < maxAge
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
