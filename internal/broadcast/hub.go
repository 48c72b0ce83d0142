package broadcast

import (
	"encoding/json"
	"log"
	"sync"
)

// EventUserDataUpdated is pushed to every session of a user whenever a stats
// write succeeds, carrying the merged stats.
const EventUserDataUpdated = "user:data:updated"

// Envelope is the wire format for pushed events.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Session is one connected client of one user. Messages are delivered over
// the Send channel; a session too slow to keep up has events dropped rather
// than blocking the publisher.
type Session struct {
	userID string
	send   chan []byte
}

// Send returns the channel the websocket writer loop consumes.
func (s *Session) Send() <-chan []byte {
	return s.send
}

// Hub fans events out to all connected sessions of a user, across devices.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*Session]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Session]struct{})}
}

// Register adds a session for a user and returns it.
func (h *Hub) Register(userID string) *Session {
	s := &Session{
		userID: userID,
		send:   make(chan []byte, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
	return s
}

// Unregister removes a session and closes its channel.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers, ok := h.sessions[s.userID]
	if !ok {
		return
	}
	if _, ok := peers[s]; !ok {
		return
	}
	delete(peers, s)
	if len(peers) == 0 {
		delete(h.sessions, s.userID)
	}
	close(s.send)
}

// Publish pushes an event to every session of the user. Sessions with a full
// buffer miss the event; they converge on their next REST read.
func (h *Hub) Publish(userID, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions[userID] {
		select {
		case s.send <- data:
		default:
		}
	}
}

// SessionCount reports the number of connected sessions for a user.
func (h *Hub) SessionCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[userID])
}
