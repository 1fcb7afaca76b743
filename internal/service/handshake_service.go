package service

import (
	"context"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/dto"
	"e2ee-chat/internal/store"
)

// HandshakeService runs the per-chat key exchange: one request, one
// accept, nothing after that. The persisted ledger is the source of
// truth; the unique chat_id index is what keeps duplicate and concurrent
// requests down to a single record.
type HandshakeService struct {
	store *store.Store
	pub   Publisher
	now   func() time.Time
}

func NewHandshakeService(st *store.Store, pub Publisher) *HandshakeService {
	return &HandshakeService{store: st, pub: pub, now: time.Now}
}

// Request records a new key exchange and notifies the receiver's inbox
// room. A request for a chat that already has a record — pending or
// accepted — is ignored so client retries stay harmless.
func (h *HandshakeService) Request(ctx context.Context, peer Peer, req dto.KeyExchangeRequest) error {
	if req.RecieverID == 0 || req.ChatID == "" || req.PublicKey == "" {
		return ErrMalformedRequest
	}
	if !req.ChatID.Has(peer.UserID()) {
		return ErrNotChatMember
	}

	rec := &domain.KeyExchange{
		ChatID:     req.ChatID,
		SenderID:   peer.UserID(),
		ReceiverID: req.RecieverID,
		PublicKey:  req.PublicKey,
		CreatedAt:  h.now().UTC(),
	}
	inserted, err := h.store.KeyExchanges().InsertIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrDuplicateExchange
	}

	peer.Join(domain.ChatRoom(req.ChatID))
	h.pub.Publish(domain.UserRoom(req.RecieverID), dto.EventNewKeyExchangeRequest, dto.KeyExchangeEvent{
		SenderID:  peer.UserID(),
		ChatID:    req.ChatID,
		PublicKey: req.PublicKey,
	})
	return nil
}

// Accept flips the pending record addressed to this peer and broadcasts
// the responder's public key to the chat room, letting both sides finish
// the shared-secret computation locally. Accepting twice, or accepting a
// chat with no pending record for this peer, changes nothing.
func (h *HandshakeService) Accept(ctx context.Context, peer Peer, req dto.KeyExchangeAccept) error {
	if req.ChatID == "" || req.PublicKey == "" {
		return ErrMalformedRequest
	}

	updated, err := h.store.KeyExchanges().MarkAccepted(ctx, req.ChatID, peer.UserID())
	if err != nil {
		return err
	}
	if !updated {
		return ErrDuplicateExchange
	}

	// Join before publishing so the accepting side sees its own
	// broadcast too.
	peer.Join(domain.ChatRoom(req.ChatID))
	h.pub.Publish(domain.ChatRoom(req.ChatID), dto.EventKeyExchangeSuccess, dto.KeyExchangeEvent{
		SenderID:  peer.UserID(),
		ChatID:    req.ChatID,
		PublicKey: req.PublicKey,
	})
	return nil
}

// AnnouncePending pushes every key exchange addressed to the peer into
// its inbox room. Used to rehydrate a client that just (re)connected.
func (h *HandshakeService) AnnouncePending(ctx context.Context, peer Peer) error {
	recs, err := h.store.KeyExchanges().FindByReceiver(ctx, peer.UserID())
	if err != nil {
		return err
	}

	out := dto.KeyExchangeRequests{Requests: make([]dto.KeyExchangeRecord, 0, len(recs))}
	for _, rec := range recs {
		out.Requests = append(out.Requests, dto.KeyExchangeRecord{
			RecieverID: rec.ReceiverID,
			SenderID:   rec.SenderID,
			ChatID:     rec.ChatID,
			PublicKey:  rec.PublicKey,
			Accepted:   rec.Accepted,
		})
	}
	h.pub.Publish(domain.UserRoom(peer.UserID()), dto.EventKeyExchangeRequests, out)
	return nil
}

// ConnectedChats rejoins the peer to every accepted chat room and pushes
// the chat roster, with display names and message counts, to its inbox.
func (h *HandshakeService) ConnectedChats(ctx context.Context, peer Peer) error {
	recs, err := h.store.KeyExchanges().FindAcceptedByUser(ctx, peer.UserID())
	if err != nil {
		return err
	}

	out := dto.ConnectedChats{Chats: make([]dto.ChatSummary, 0, len(recs))}
	for _, rec := range recs {
		peer.Join(domain.ChatRoom(rec.ChatID))

		count, err := h.store.Messages().CountByChatID(ctx, rec.ChatID)
		if err != nil {
			return err
		}
		out.Chats = append(out.Chats, dto.ChatSummary{
			RecieverID:       rec.ReceiverID,
			SenderID:         rec.SenderID,
			ChatID:           rec.ChatID,
			UnreadMessages:   count,
			RecieverUsername: h.displayName(ctx, rec.ReceiverID),
			SenderUsername:   h.displayName(ctx, rec.SenderID),
		})
	}
	h.pub.Publish(domain.UserRoom(peer.UserID()), dto.EventConnectedChats, out)
	return nil
}

// displayName is best-effort enrichment; a missing user renders as an
// empty name rather than failing the roster.
func (h *HandshakeService) displayName(ctx context.Context, id domain.UserID) string {
	name, err := h.store.Users().UsernameFor(ctx, id)
	if err != nil {
		return ""
	}
	return name
}
