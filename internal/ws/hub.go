package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"chatroom-service/internal/observability"
)

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// MembershipEntry records which room a connection currently occupies and the
// session identity recorded at join time. Messages are always attributed to
// this entry, never to client-supplied fields.
type MembershipEntry struct {
	RoomID   int
	UserID   int
	Username string
	Color    string
}

type session struct {
	conn    Conn
	info    ConnInfo
	entry   MembershipEntry
	writeMu sync.Mutex
}

// write serializes frames per connection; broadcasts for different rooms may
// run concurrently and gorilla permits only one writer at a time.
func (s *session) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the room membership table: one entry per joined connection, and the
// broadcast scope per room derived from it. It is constructed at startup and
// injected wherever needed; all access is internally synchronized.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	rooms    map[int]map[string]*session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		rooms:    make(map[int]map[string]*session),
	}
}

// Join registers the connection in the room, replacing any previous
// registration for the same connection. The previous entry is returned so the
// caller can announce the implicit leave to the old room.
func (h *Hub) Join(connID string, roomID int, conn Conn, info ConnInfo) (MembershipEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var prev MembershipEntry
	hadPrev := false
	if s, ok := h.sessions[connID]; ok {
		prev = s.entry
		hadPrev = true
		h.removeFromRoomLocked(connID, s.entry.RoomID)
	}

	s := &session{
		conn: conn,
		info: info,
		entry: MembershipEntry{
			RoomID:   roomID,
			UserID:   info.UserID,
			Username: info.Username,
			Color:    info.Color,
		},
	}
	h.sessions[connID] = s
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*session)
	}
	h.rooms[roomID][connID] = s
	return prev, hadPrev
}

// Lookup returns the membership entry for a connection, if it has joined.
func (h *Hub) Lookup(connID string) (MembershipEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connID]
	if !ok {
		return MembershipEntry{}, false
	}
	return s.entry, true
}

// Leave atomically removes and returns the entry for a connection. Removing a
// connection that never joined is a no-op, so a second disconnect is safe.
func (h *Hub) Leave(connID string) (MembershipEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[connID]
	if !ok {
		return MembershipEntry{}, false
	}
	h.removeFromRoomLocked(connID, s.entry.RoomID)
	delete(h.sessions, connID)
	return s.entry, true
}

func (h *Hub) removeFromRoomLocked(connID string, roomID int) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomCounts reports current occupancy per room.
func (h *Hub) RoomCounts() map[int]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[int]int, len(h.rooms))
	for roomID, conns := range h.rooms {
		counts[roomID] = len(conns)
	}
	return counts
}

// Broadcast sends an event to every member of a room, including the
// connection the event originated from. Dead connections are closed and
// evicted from the table.
func (h *Hub) Broadcast(roomID int, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	h.mu.RLock()
	members := make(map[string]*session, len(h.rooms[roomID]))
	for connID, s := range h.rooms[roomID] {
		members[connID] = s
	}
	h.mu.RUnlock()

	for connID, s := range members {
		if err := s.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			s.conn.Close()
			h.Leave(connID)
			observability.IncWSEvent("room", "ws_error")
		}
	}
}

// Send delivers an event to a single connection.
func (h *Hub) Send(connID string, event Event) {
	h.mu.RLock()
	s, ok := h.sessions[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("send marshal error: %v", err)
		return
	}
	if err := s.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		s.conn.Close()
		h.Leave(connID)
	}
}
