package domain

import "time"

type Session struct {
	ID        SessionID  `gorm:"type:uuid;primaryKey"`
	UserID    UserID     `gorm:"index;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
	IP        string    `gorm:"type:text"`
	UserAgent string    `gorm:"type:text"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
