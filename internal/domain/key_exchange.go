package domain

import "time"

// KeyExchange records one handshake between two users. At most one row
// exists per chat id; the unique index is what makes concurrent duplicate
// requests collapse into a single record.
type KeyExchange struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ChatID     ChatID    `gorm:"type:text;uniqueIndex:ux_key_exchanges_chat_id;not null"`
	SenderID   UserID    `gorm:"not null"`
	ReceiverID UserID    `gorm:"index;not null"`
	PublicKey  string    `gorm:"type:text;not null"`
	Accepted   bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (KeyExchange) TableName() string { return "key_exchanges" }
