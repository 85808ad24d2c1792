package session

import (
	"sync"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

// Room is the set of connections currently attached to one session id.
type Room struct {
	ID      string
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

func (r *Room) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Room) GetClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) Has(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[c]
	return ok
}

func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
	return len(r.clients)
}

// Broadcast sends to every member except sender and returns how many frames
// were queued and how many were dropped.
func (r *Room) Broadcast(sender *Client, frame models.WSFrame) (sent, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		if c == sender {
			continue
		}
		if c.Send(frame) {
			sent++
		} else {
			dropped++
		}
	}
	return sent, dropped
}

func (r *Room) BroadcastAll(frame models.WSFrame) (sent, dropped int) {
	return r.Broadcast(nil, frame)
}
