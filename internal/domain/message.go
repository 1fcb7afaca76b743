package domain

import "time"

// Message is an opaque ciphertext envelope. The server stores and relays
// it but never holds the key material to read it.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ChatID     ChatID    `gorm:"type:text;index:idx_messages_chat_ts,priority:1;not null"`
	Sender     UserID    `gorm:"not null"`
	Receiver   UserID    `gorm:"not null"`
	Ciphertext string    `gorm:"type:text;not null"`
	IV         string    `gorm:"type:text;not null"`
	Timestamp  time.Time `gorm:"not null;index:idx_messages_chat_ts,priority:2"`
}

func (Message) TableName() string { return "messages" }
