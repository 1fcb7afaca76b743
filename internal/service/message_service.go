package service

import (
	"context"
	"sync"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/dto"
	"e2ee-chat/internal/observability/metrics"
	"e2ee-chat/internal/store"
)

// MessageService appends ciphertext to the ledger and fans it out. The
// server assigns every timestamp from its own clock; client-supplied
// times never influence ordering.
type MessageService struct {
	store *store.Store
	pub   Publisher
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewMessageService(st *store.Store, pub Publisher) *MessageService {
	return &MessageService{store: st, pub: pub, now: time.Now}
}

// stamp returns a strictly increasing wall-clock timestamp so concurrent
// sends in the same chat never tie, even at millisecond wire resolution.
func (m *MessageService) stamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now().UTC().Truncate(time.Millisecond)
	if !t.After(m.last) {
		t = m.last.Add(time.Millisecond)
	}
	m.last = t
	return t
}

func (m *MessageService) Send(ctx context.Context, peer Peer, req dto.SendMessage) error {
	if req.ChatID == "" || req.Sender == 0 || req.Receiver == 0 || req.Ciphertext == "" || req.IV == "" {
		return ErrMalformedRequest
	}
	if !req.ChatID.Has(peer.UserID()) {
		return ErrNotChatMember
	}
	// The connection is already authenticated; this stops it from
	// writing history in someone else's name.
	if req.Sender != peer.UserID() {
		return ErrSenderMismatch
	}

	msg := &domain.Message{
		ChatID:     req.ChatID,
		Sender:     req.Sender,
		Receiver:   req.Receiver,
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		Timestamp:  m.stamp(),
	}
	if err := m.store.Messages().Append(ctx, msg); err != nil {
		// Nothing was persisted, so nothing is broadcast.
		return err
	}

	metrics.MessagesRelayedTotal.Inc()
	m.pub.Publish(domain.ChatRoom(req.ChatID), dto.EventNewMessage, dto.NewMessage{
		Sender:     msg.Sender,
		Receiver:   msg.Receiver,
		Ciphertext: msg.Ciphertext,
		IV:         msg.IV,
		Timestamp:  msg.Timestamp.UnixMilli(),
	})
	return nil
}

// History returns the chat's full ciphertext record, oldest first. It is
// a point-in-time snapshot; live updates come from Send broadcasts.
func (m *MessageService) History(ctx context.Context, peer Peer, chatID domain.ChatID) (dto.MessageHistory, error) {
	if chatID == "" {
		return dto.MessageHistory{}, ErrMalformedRequest
	}
	if !chatID.Has(peer.UserID()) {
		return dto.MessageHistory{}, ErrNotChatMember
	}

	msgs, err := m.store.Messages().ListByChatID(ctx, chatID)
	if err != nil {
		return dto.MessageHistory{}, err
	}

	out := dto.MessageHistory{Messages: make([]dto.WireMessage, 0, len(msgs))}
	for _, msg := range msgs {
		out.Messages = append(out.Messages, dto.WireMessage{
			Sender:     msg.Sender,
			Receiver:   msg.Receiver,
			Ciphertext: msg.Ciphertext,
			IV:         msg.IV,
			ChatID:     msg.ChatID,
			Timestamp:  msg.Timestamp.UnixMilli(),
		})
	}
	return out, nil
}
