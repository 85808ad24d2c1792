package session

import (
	"sync"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

// Hub manages the transport rooms, one per session id with live members.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

func (h *Hub) GetOrCreate(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r := NewRoom(id)
	h.rooms[id] = r
	return r
}

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, id)
}

func (h *Hub) Join(sessionID string, c *Client) {
	h.GetOrCreate(sessionID).Join(c)
}

// Leave removes c from the room and drops the room once it is empty.
func (h *Hub) Leave(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	if left := r.Leave(c); left == 0 {
		delete(h.rooms, sessionID)
	}
}

// Emit sends frame to every member of the room.
func (h *Hub) Emit(sessionID string, frame models.WSFrame) (sent, dropped int) {
	return h.EmitExcept(sessionID, nil, frame)
}

// EmitExcept sends frame to every member of the room except sender.
func (h *Hub) EmitExcept(sessionID string, sender *Client, frame models.WSFrame) (sent, dropped int) {
	r, ok := h.Get(sessionID)
	if !ok {
		return 0, 0
	}
	return r.Broadcast(sender, frame)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
