package store

import (
	"context"

	"e2ee-chat/internal/domain"

	"gorm.io/gorm"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

func (m *MessageStore) Append(ctx context.Context, msg *domain.Message) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

// ListByChatID returns the full ciphertext history for a chat, oldest
// first. Ties on timestamp fall back to insert order.
func (m *MessageStore) ListByChatID(ctx context.Context, chatID domain.ChatID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := m.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp asc, id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *MessageStore) CountByChatID(ctx context.Context, chatID domain.ChatID) (int64, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count, err
}
