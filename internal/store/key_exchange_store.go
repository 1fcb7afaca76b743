package store

import (
	"context"

	"e2ee-chat/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyExchangeStore struct{ db *gorm.DB }

func (s *Store) KeyExchanges() *KeyExchangeStore { return &KeyExchangeStore{db: s.DB} }

// InsertIfAbsent creates the record unless one already exists for the chat
// id. The unique index on chat_id makes this atomic under concurrent
// duplicate requests; the loser of the race sees inserted == false.
func (k *KeyExchangeStore) InsertIfAbsent(ctx context.Context, rec *domain.KeyExchange) (inserted bool, err error) {
	tx := k.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// MarkAccepted flips accepted on the pending record addressed to
// receiverID. The accepted = false predicate makes a second accept a
// no-op (updated == false) instead of a second state change.
func (k *KeyExchangeStore) MarkAccepted(ctx context.Context, chatID domain.ChatID, receiverID domain.UserID) (updated bool, err error) {
	tx := k.db.WithContext(ctx).
		Model(&domain.KeyExchange{}).
		Where("chat_id = ? AND receiver_id = ? AND accepted = ?", chatID, receiverID, false).
		Update("accepted", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (k *KeyExchangeStore) FindByReceiver(ctx context.Context, userID domain.UserID) ([]domain.KeyExchange, error) {
	var recs []domain.KeyExchange
	err := k.db.WithContext(ctx).
		Where("receiver_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (k *KeyExchangeStore) FindAcceptedByUser(ctx context.Context, userID domain.UserID) ([]domain.KeyExchange, error) {
	var recs []domain.KeyExchange
	err := k.db.WithContext(ctx).
		Where("(receiver_id = ? OR sender_id = ?) AND accepted = ?", userID, userID, true).
		Order("created_at asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (k *KeyExchangeStore) FindByChatID(ctx context.Context, chatID domain.ChatID) (*domain.KeyExchange, error) {
	var rec domain.KeyExchange
	if err := k.db.WithContext(ctx).First(&rec, "chat_id = ?", chatID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}
