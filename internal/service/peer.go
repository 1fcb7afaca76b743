package service

import "e2ee-chat/internal/domain"

// Peer is the protocol-facing view of one authenticated connection: whose
// it is and which rooms it can be subscribed to. Keeping it an interface
// keeps the protocol logic independent of the websocket transport.
type Peer interface {
	UserID() domain.UserID
	Join(room string)
}

// Publisher fans an event out to every connection subscribed to a room.
// Delivery is best-effort and must not block the caller.
type Publisher interface {
	Publish(room, event string, payload any)
}
