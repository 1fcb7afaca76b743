package dto

import (
	"encoding/json"

	"e2ee-chat/internal/domain"
)

// Relay event names. These and the payload shapes below are the wire
// contract with the browser client; the historical "reciever" spelling is
// part of that contract.

// Client -> server.
const (
	EventConnectedChats      = "connected_chats"
	EventConnectChat         = "connect_chat"
	EventKeyExchangeRequest  = "key_exchange_request"
	EventKeyExchangeSuccess  = "key_exchange_success"
	EventKeyExchangeRequests = "key_exchange_requests"
	EventGetHistory          = "get_history"
	EventSendMessage         = "send_message"
)

// Server -> client.
const (
	EventNewKeyExchangeRequest = "new_key_exchange_request"
	EventMessageHistory        = "message_history"
	EventNewMessage            = "new_message"
)

// Envelope frames every client->server relay message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound frames every server->client relay message.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client -> server payloads.

type KeyExchangeRequest struct {
	RecieverID domain.UserID `json:"reciever_id"`
	ChatID     domain.ChatID `json:"chat_id"`
	PublicKey  string        `json:"public_key"`
}

type KeyExchangeAccept struct {
	ChatID    domain.ChatID `json:"chat_id"`
	PublicKey string        `json:"public_key"`
}

type ConnectChat struct {
	ChatID domain.ChatID `json:"chat_id"`
}

type GetHistory struct {
	ChatID domain.ChatID `json:"chat_id"`
}

type SendMessage struct {
	ChatID     domain.ChatID `json:"chat_id"`
	Sender     domain.UserID `json:"sender"`
	Receiver   domain.UserID `json:"receiver"`
	Ciphertext string        `json:"ciphertext"`
	IV         string        `json:"iv"`
}

// Server -> client payloads.

type KeyExchangeRecord struct {
	RecieverID domain.UserID `json:"reciever_id"`
	SenderID   domain.UserID `json:"sender_id"`
	ChatID     domain.ChatID `json:"chat_id"`
	PublicKey  string        `json:"public_key"`
	Accepted   bool          `json:"accepted"`
}

type KeyExchangeRequests struct {
	Requests []KeyExchangeRecord `json:"requests"`
}

// KeyExchangeEvent carries both new_key_exchange_request and
// key_exchange_success: sender id, chat id and the sender's public key.
type KeyExchangeEvent struct {
	SenderID  domain.UserID `json:"sender_id"`
	ChatID    domain.ChatID `json:"chat_id"`
	PublicKey string        `json:"public_key"`
}

type ChatSummary struct {
	RecieverID       domain.UserID `json:"reciever_id"`
	SenderID         domain.UserID `json:"sender_id"`
	ChatID           domain.ChatID `json:"chat_id"`
	UnreadMessages   int64         `json:"unread_messages"`
	RecieverUsername string        `json:"reciever_username"`
	SenderUsername   string        `json:"sender_username"`
}

type ConnectedChats struct {
	Chats []ChatSummary `json:"chats"`
}

// WireMessage is a persisted message as seen on the wire. Timestamps are
// Unix milliseconds in the server clock domain.
type WireMessage struct {
	Sender     domain.UserID `json:"sender"`
	Receiver   domain.UserID `json:"receiver"`
	Ciphertext string        `json:"ciphertext"`
	IV         string        `json:"iv"`
	ChatID     domain.ChatID `json:"chat_id"`
	Timestamp  int64         `json:"timestamp"`
}

type MessageHistory struct {
	Messages []WireMessage `json:"messages"`
}

type NewMessage struct {
	Sender     domain.UserID `json:"sender"`
	Receiver   domain.UserID `json:"receiver"`
	Ciphertext string        `json:"ciphertext"`
	IV         string        `json:"iv"`
	Timestamp  int64         `json:"timestamp"`
}
