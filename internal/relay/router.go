package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"e2ee-chat/internal/dto"
	"e2ee-chat/internal/observability/metrics"
)

// Router is the room fan-out fabric. It maps room names to the clients
// subscribed to them and holds nothing else: clients own their own
// lifetime, the router only holds back-references that Unregister clears.
//
// All maps are guarded by mu. Publish runs under the read lock and only
// ever sends on client channels; closing a channel happens exclusively
// under the write lock, so a publish can never hit a closed channel.
type Router struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewRouter() *Router {
	return &Router{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (r *Router) Register(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	metrics.WSConnectionsActive.Inc()
	slog.Debug("relay: client registered", "user_id", c.userID)
}

// Unregister removes the client from every room and closes its send
// channel. Safe to call more than once; only the first call acts.
func (r *Router) Unregister(c *Client) {
	r.mu.Lock()
	if _, ok := r.clients[c]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c)
	for room := range c.rooms {
		r.dropFromRoom(room, c)
	}
	close(c.send)
	r.mu.Unlock()
	metrics.WSConnectionsActive.Dec()
	slog.Debug("relay: client unregistered", "user_id", c.userID)
}

// Join subscribes the client to a room. Joining after the client was
// unregistered is a no-op.
func (r *Router) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[*Client]struct{})
	}
	r.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Publish delivers the event to every subscriber of the room. A client
// whose send buffer is full is dropped rather than letting it stall the
// room.
func (r *Router) Publish(room, event string, payload any) {
	data, err := json.Marshal(dto.Outbound{Event: event, Data: payload})
	if err != nil {
		slog.Error("relay: marshal publish payload", "event", event, "error", err)
		return
	}

	r.mu.RLock()
	var slow []*Client
	for c := range r.rooms[room] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range slow {
		metrics.SubscribersDroppedTotal.Inc()
		slog.Warn("relay: dropping slow subscriber", "user_id", c.userID, "room", room)
		// Unregister needs the write lock, so it cannot run inline
		// under the read lock above.
		go r.Unregister(c)
		c.closeConn()
	}
}

// RoomSize reports the number of live subscribers in a room.
func (r *Router) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Shutdown drops every session: all clients are unregistered and their
// connections closed.
func (r *Router) Shutdown() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		r.Unregister(c)
		c.closeConn()
	}
}

// dropFromRoom must run with mu held for writing.
func (r *Router) dropFromRoom(room string, c *Client) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(c.rooms, room)
}
