// Package hub tracks active realtime connections per user.
package hub

import (
	"fmt"
	"sync"
)

// Sender is the minimal interface the hub needs from a connection: the
// ability to push a JSON payload to the connected client.
type Sender interface {
	WriteJSON(v interface{}) error
}

// lockedSender serializes writes to one connection. Websocket
// connections forbid concurrent writers, and two senders relaying to
// the same receiver push from separate goroutines.
type lockedSender struct {
	mu sync.Mutex
	s  Sender
}

func (l *lockedSender) WriteJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.WriteJSON(v)
}

// Hub maps user IDs to their active connections so the server can push
// messages to every currently-connected endpoint for a user.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[int64]*lockedSender
	nextID int64
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{conns: make(map[string]map[int64]*lockedSender)}
}

// Join registers a connection for the given user and returns a
// connection id used to leave when the connection closes.
func (h *Hub) Join(userID string, s Sender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[int64]*lockedSender)
	}

	h.nextID++
	id := h.nextID
	h.conns[userID][id] = &lockedSender{s: s}
	return id
}

// Leave removes a previously-registered connection.
func (h *Hub) Leave(userID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// SendToUser pushes the payload to all of the user's connections.
// Delivery is best-effort: every connection is attempted, the first
// error is returned, and connections that fail are dropped from the hub
// so broken endpoints don't accumulate.
func (h *Hub) SendToUser(userID string, payload interface{}) error {
	type target struct {
		id int64
		s  *lockedSender
	}

	// Snapshot under the lock; a concurrent Join or Leave must not
	// mutate the map mid-iteration.
	h.mu.RLock()
	targets := make([]target, 0, len(h.conns[userID]))
	for id, s := range h.conns[userID] {
		targets = append(targets, target{id: id, s: s})
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}

	var firstErr error
	for _, t := range targets {
		if err := t.s.WriteJSON(payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			h.Leave(userID, t.id)
		}
	}

	return firstErr
}
